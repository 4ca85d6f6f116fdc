package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aihub/ros-rag-go/app/controllers"
	"github.com/aihub/ros-rag-go/app/middleware"
)

// Init registers all routes. Must be called after the container is built.
func Init() {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	web.Router("/chat", &controllers.ChatController{}, "post:Chat")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Handler("/metrics", promhttp.Handler())
}
