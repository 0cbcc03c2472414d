package fakebackend

import "github.com/gin-gonic/gin"

func (b *Backend) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), b.requestLogger(), b.cors(), b.countCalls(), b.injectFaults())

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", b.register)
		auth.POST("/login", b.login)
		auth.POST("/refresh", b.refresh)
		auth.GET("/me", b.requireAuth(), b.me)
	}

	orgs := api.Group("/orgs", b.requireAuth())
	{
		orgs.GET("", b.listOrgs)
		orgs.POST("", b.createOrg)
		orgs.GET("/:slug", b.getOrgBySlug)
		orgs.POST("/:slug/invite", b.inviteUser)
	}

	spaces := api.Group("/spaces", b.requireAuth())
	{
		spaces.GET("", b.listSpaces)
		spaces.POST("", b.createSpace)
		spaces.GET("/:id", b.getSpace)
		spaces.PUT("/:id", b.updateSpace)
		spaces.DELETE("/:id", b.deleteSpace)
	}

	reservations := api.Group("/reservations", b.requireAuth())
	{
		reservations.GET("", b.listReservations)
		reservations.POST("", b.createReservation)
		reservations.GET("/:id", b.getReservation)
		reservations.PUT("/:id", b.updateReservation)
		reservations.DELETE("/:id", b.cancelReservation)
	}

	return r
}
