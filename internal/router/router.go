package router

import (
	"log/slog"
	"net/http"

	"Med_Community/internal/handler"
	"Med_Community/internal/middleware"
	"Med_Community/internal/projection"
	"Med_Community/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services 路由需要的全部服务
type Services struct {
	Users       *service.UserService
	Votes       *service.VoteService
	Membership  *service.MembershipService
	Communities *service.CommunityService
	Posts       *service.PostService
	Comments    *service.CommentService
	Articles    *service.ArticleService
	Sessions    *projection.Registry
}

func InitRouter(svc Services, allowedOrigins []string, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(svc.Users)
	optional := middleware.OptionalAuth(svc.Users)

	user := handler.NewUserHandler(svc.Users, svc.Membership)
	email := handler.NewEmailHandler(svc.Users)
	community := handler.NewCommunityHandler(svc.Communities, svc.Membership, svc.Votes)
	post := handler.NewPostHandler(svc.Posts, svc.Votes, svc.Comments)
	article := handler.NewArticleHandler(svc.Articles)
	session := handler.NewSessionHandler(svc.Sessions)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", auth, user.Logout)
	}

	// 找回密码
	emailGroup := r.Group("/api/email")
	{
		emailGroup.POST("/reset/code", email.SendResetCode)
		emailGroup.POST("/reset", email.ResetPassword)
	}

	// token 相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(auth)
	{
		authGroup.POST("/change-password", user.ChangePassword)
		authGroup.GET("/snippets", user.Snippets)
		authGroup.GET("/session", session.Snapshot)
		authGroup.POST("/email/code", email.SendVerifyCode)
		authGroup.POST("/email/verify", email.VerifyEmail)
	}

	// 社区相关接口，读接口允许匿名
	communityGroup := r.Group("/api/community")
	{
		communityGroup.GET("/list", optional, community.List)
		communityGroup.GET("/:id", optional, community.Get)
		communityGroup.GET("/:id/posts", optional, post.ListByCommunity)

		communityGroup.POST("/create", auth, community.Create)
		communityGroup.POST("/request", auth, community.Request)
		communityGroup.POST("/:id/join", auth, community.Join)
		communityGroup.POST("/:id/leave", auth, community.Leave)
		communityGroup.POST("/:id/membership", auth, community.Membership)
		communityGroup.POST("/:id/leave-view", auth, community.LeaveView)
		communityGroup.POST("/:id/image", auth, community.UploadImage)
		communityGroup.GET("/:id/votes", auth, community.Votes)
	}

	// 建社区申请审批
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(auth)
	{
		adminGroup.GET("/requests", community.ListRequests)
		adminGroup.POST("/requests/:id/approve", community.ApproveRequest)
		adminGroup.POST("/requests/:id/reject", community.RejectRequest)
	}

	// 帖子相关接口
	postGroup := r.Group("/api/post")
	{
		postGroup.GET("/:id", optional, post.GetPost)
		postGroup.GET("/:id/vote-status", post.VoteStatus)
		postGroup.GET("/:id/comments", post.ListComments)

		postGroup.POST("/create", auth, post.CreatePost)
		postGroup.DELETE("/:id", auth, post.DeletePost)
		postGroup.POST("/:id/vote", auth, post.Vote)
		postGroup.POST("/:id/comments", auth, post.CreateComment)
	}
	r.DELETE("/api/comment/:id", auth, post.DeleteComment)

	// 医学文章
	articleGroup := r.Group("/api/article")
	articleGroup.Use(auth)
	{
		articleGroup.POST("/:id/like", article.ToggleLike)
		articleGroup.POST("/save", article.Save)
		articleGroup.DELETE("/:id/save", article.Unsave)
		articleGroup.GET("/saved", article.ListSaved)
		articleGroup.POST("/share", article.Share)
	}

	return r
}
