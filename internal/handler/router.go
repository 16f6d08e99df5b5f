package handler

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	if limit := h.cfg.Server.MaxUploadMB << 20; limit > 0 {
		r.MaxMultipartMemory = limit
	}

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)

	// 公开接口
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset/:token", h.ResetPassword)
	}
	api.GET("/announcements", h.ListAnnouncements)
	api.GET("/announcements/:id/download", h.DownloadAnnouncement)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:id", h.GetDocument)
	api.GET("/documents/:id/download", h.DownloadDocument)

	// 登录用户
	authed := api.Group("", AuthMiddleware(h.auth))
	{
		authed.POST("/auth/logout", h.Logout)

		authed.GET("/accounts/me", h.GetProfile)
		authed.PUT("/accounts/me", h.UpdateProfile)
		authed.POST("/accounts/me/password", h.ChangePassword)
		authed.GET("/accounts/me/payments", h.ListOwnPayments)

		authed.POST("/payments", h.SubmitPayment)
		authed.GET("/payments/:id", h.GetPayment)
		authed.GET("/payments/:id/download", h.DownloadPayment)

		authed.GET("/expenditures", h.ListExpenditures)
		authed.GET("/expenditures/:id", h.GetExpenditure)
		authed.GET("/earnings", h.ListEarnings)
	}

	// 管理员
	admin := authed.Group("", RequireAdmin())
	{
		admin.GET("/accounts", h.ListAccounts)
		admin.GET("/accounts/export", h.ExportAccounts)
		admin.GET("/accounts/:id", h.GetAccount)
		admin.PUT("/accounts/:id", h.UpdateAccount)
		admin.DELETE("/accounts/:id", h.DeleteAccount)
		admin.PUT("/accounts/:id/status", h.SetAccountStatus)

		admin.GET("/payments", h.ListPayments)
		admin.GET("/payments/pending", h.ListPendingPayments)
		admin.PUT("/payments/:id/approve", h.ApprovePayment)
		admin.PUT("/payments/:id/reject", h.RejectPayment)
		admin.DELETE("/payments/:id", h.DeletePayment)

		admin.POST("/expenditures", h.CreateExpenditure)
		admin.PUT("/expenditures/:id", h.UpdateExpenditure)
		admin.DELETE("/expenditures/:id", h.DeleteExpenditure)
		admin.GET("/expenditures/:id/download", h.DownloadExpenditure)

		admin.POST("/earnings", h.CreateEarning)
		admin.GET("/earnings/:id", h.GetEarning)
		admin.PUT("/earnings/:id", h.UpdateEarning)
		admin.DELETE("/earnings/:id", h.DeleteEarning)
		admin.GET("/earnings/:id/download", h.DownloadEarning)

		admin.GET("/totals", h.GetTotal)
		admin.PUT("/totals", h.SetTotal)

		admin.POST("/announcements", h.CreateAnnouncement)
		admin.DELETE("/announcements/:id", h.DeleteAnnouncement)
		admin.POST("/documents", h.UploadDocument)
		admin.DELETE("/documents/:id", h.DeleteDocument)

		admin.POST("/admin/jobs/accrual", h.RunAccrual)
	}

	return r
}
