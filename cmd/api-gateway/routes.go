package main

import (
	"path"
	"path/filepath"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyhub-api/internal/handler"
	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/repository"
	"github.com/noah-isme/studyhub-api/internal/service"
	"github.com/noah-isme/studyhub-api/pkg/config"
)

// avatarPrefix is the only bucket folder served without a signed token.
// Papers and notices go through /files/download so the login gate and the
// download counter cannot be skipped.
const avatarPrefix = "avatars"

func mountPublicFiles(r *gin.Engine, storage config.StorageConfig, notes config.NotesConfig) {
	r.Use(static.Serve(path.Join(storage.PublicPath, avatarPrefix), static.LocalFile(filepath.Join(storage.Dir, avatarPrefix), false)))
	r.Use(static.Serve(notes.URLPrefix, static.LocalFile(notes.Dir, false)))
}

type routeDeps struct {
	auth    *service.AuthService
	users   *repository.UserRepository
	metrics *handler.MetricsHandler

	authH    *handler.AuthHandler
	userH    *handler.UserHandler
	paperH   *handler.PaperHandler
	noticeH  *handler.NoticeHandler
	noteH    *handler.NoteHandler
	collegeH *handler.CollegeHandler
	quizH    *handler.QuizHandler
	timerH   *handler.PomodoroHandler
	fileH    *handler.FileHandler
}

func registerRoutes(api *gin.RouterGroup, d routeDeps) {
	api.Use(middleware.WithResponseMeta())

	requireAuth := middleware.JWT(d.auth)
	optionalAuth := middleware.OptionalJWT(d.auth)
	adminOnly := middleware.RequireAdmin()

	auth := api.Group("/auth")
	auth.POST("/register", d.authH.Register)
	auth.POST("/login", d.authH.Login)
	auth.POST("/refresh", d.authH.Refresh)
	auth.POST("/logout", requireAuth, d.authH.Logout)
	auth.POST("/change-password", requireAuth, d.authH.ChangePassword)
	auth.GET("/me", requireAuth, d.authH.Me)

	profile := api.Group("/profile", requireAuth)
	profile.GET("", d.userH.Profile)
	profile.PUT("", d.userH.UpdateProfile)
	profile.POST("/avatar", d.userH.UploadAvatar)

	users := api.Group("/users", requireAuth, adminOnly)
	users.GET("", d.userH.List)
	users.GET("/:id", d.userH.Get)
	users.PUT("/:id/role", d.userH.SetRole)

	papers := api.Group("/papers")
	papers.GET("", optionalAuth, d.paperH.List)
	papers.POST("", requireAuth, d.paperH.Submit)
	papers.GET("/pending", requireAuth, adminOnly, d.paperH.Pending)
	papers.GET("/stats", requireAuth, adminOnly, d.paperH.Stats)
	papers.GET("/export", requireAuth, adminOnly, middleware.Audit(d.users, models.AuditActionPaperExport, "papers"), d.paperH.Export)
	papers.GET("/:id", optionalAuth, d.paperH.Get)
	papers.POST("/:id/approve", requireAuth, adminOnly, d.paperH.Approve)
	papers.DELETE("/:id", requireAuth, adminOnly, d.paperH.Reject)
	papers.POST("/:id/download", requireAuth, d.paperH.Download)

	notices := api.Group("/notices")
	notices.GET("", d.noticeH.List)
	notices.POST("", requireAuth, adminOnly, d.noticeH.Upload)
	notices.POST("/:id/download", requireAuth, d.noticeH.Download)
	notices.DELETE("/:id", requireAuth, adminOnly, d.noticeH.Delete)

	notes := api.Group("/notes/:semester/subjects")
	notes.GET("", d.noteH.Subjects)
	notes.GET("/:subject", d.noteH.Chapters)
	notes.GET("/:subject/chapters/:chapter/resolve", d.noteH.Resolve)
	notes.GET("/:subject/chapters/:chapter", d.noteH.Chapter)
	notes.HEAD("/:subject/chapters/:chapter", d.noteH.Exists)

	colleges := api.Group("/colleges")
	colleges.GET("", d.collegeH.List)
	colleges.GET("/:id", d.collegeH.Get)
	colleges.POST("", requireAuth, adminOnly, d.collegeH.Create)
	colleges.PUT("/:id", requireAuth, adminOnly, d.collegeH.Update)
	colleges.DELETE("/:id", requireAuth, adminOnly, d.collegeH.Delete)

	quiz := api.Group("/quiz", requireAuth)
	quiz.POST("", d.quizH.Generate)
	quiz.POST("/:id/submit", d.quizH.Submit)

	timer := api.Group("/pomodoro", requireAuth)
	timer.GET("", d.timerH.State)
	timer.POST("/tick", d.timerH.Tick)
	timer.POST("/start", d.timerH.Start)
	timer.POST("/pause", d.timerH.Pause)
	timer.POST("/resume", d.timerH.Resume)
	timer.POST("/reset", d.timerH.Reset)
	timer.POST("/skip", d.timerH.Skip)
	timer.POST("/phase", d.timerH.SwitchPhase)
	timer.GET("/settings", d.timerH.Settings)
	timer.PUT("/settings", d.timerH.UpdateSettings)
	timer.GET("/history", d.timerH.History)
	timer.DELETE("/history", d.timerH.ClearHistory)
	timer.GET("/stats", d.timerH.Stats)
	timer.GET("/report", d.timerH.Report)

	api.GET("/files/download", d.fileH.Download)
	api.GET("/metrics/summary", requireAuth, adminOnly, d.metrics.Snapshot)
}
