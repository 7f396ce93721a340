package routes

import (
	"github.com/biblioteka/backend/internal/app/controllers"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/middleware"
	"github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/biblioteka/backend/internal/pkg/websocket"
	"github.com/gin-gonic/gin"
)

// Controllers groups every HTTP handler mounted by SetupRouter
type Controllers struct {
	Health      *controllers.HealthController
	Users       *controllers.UserController
	Branches    *controllers.BranchController
	Catalog     *controllers.CatalogController
	Circulation *controllers.CirculationController
	Fines       *controllers.FineController
	Reviews     *controllers.ReviewController
	Queue       *controllers.QueueController
	Websocket   *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	v1.GET("/health", c.Health.Health)
	v1.GET("/ping", c.Health.Ping)

	// --- Admin API: staff only ---
	admin := v1.Group("/admin")
	admin.Use(authMiddleware.JWTAuth(), authMiddleware.RoleRequired(auth.RoleAdmin, auth.RoleLibrarian))

	admin.GET("/notifications/ws", c.Websocket.HandleConnection)

	adminOnly := authMiddleware.RoleRequired(auth.RoleAdmin)
	manageBooks := authMiddleware.RequirePermission(models.PermManageBooks)
	manageUsers := authMiddleware.RequirePermission(models.PermManageUsers)
	manageBookings := authMiddleware.RequirePermission(models.PermManageBookings)

	// Users, profiles and assignments
	users := admin.Group("/users", manageUsers)
	{
		users.GET("", c.Users.ListUsers)
		users.GET("/:id", c.Users.GetUser)
		users.POST("", c.Users.CreateUser)
		users.PUT("/:id", c.Users.UpdateUser)
		users.DELETE("/:id", c.Users.DeleteUser)
	}
	profiles := admin.Group("/profiles", manageUsers)
	{
		profiles.GET("", c.Users.ListProfiles)
		profiles.GET("/:id", c.Users.GetProfile)
		profiles.POST("", c.Users.CreateProfile)
		profiles.PUT("/:id", c.Users.UpdateProfile)
		profiles.DELETE("/:id", c.Users.DeleteProfile)
	}
	assignments := admin.Group("/librarian-assignments")
	{
		assignments.GET("", manageUsers, c.Users.ListAssignments)
		assignments.GET("/:id", manageUsers, c.Users.GetAssignment)
		assignments.POST("", adminOnly, c.Users.CreateAssignment)
		assignments.PUT("/:id", adminOnly, c.Users.UpdateAssignment)
		assignments.DELETE("/:id", adminOnly, c.Users.DeleteAssignment)
	}

	// Branches and reading rooms: any staff may read, only admins edit
	branches := admin.Group("/branches")
	{
		branches.GET("", c.Branches.ListBranches)
		branches.GET("/:id", c.Branches.GetBranch)
		branches.POST("", adminOnly, c.Branches.CreateBranch)
		branches.PUT("/:id", adminOnly, c.Branches.UpdateBranch)
		branches.DELETE("/:id", adminOnly, c.Branches.DeleteBranch)
	}
	rooms := admin.Group("/reading-rooms")
	{
		rooms.GET("", c.Branches.ListRooms)
		rooms.GET("/:id", c.Branches.GetRoom)
		rooms.GET("/:id/availability", c.Branches.RoomAvailability)
		rooms.POST("", adminOnly, c.Branches.CreateRoom)
		rooms.PUT("/:id", adminOnly, c.Branches.UpdateRoom)
		rooms.DELETE("/:id", adminOnly, c.Branches.DeleteRoom)
	}
	roomBookings := admin.Group("/room-bookings", manageBookings)
	{
		roomBookings.GET("", c.Branches.ListRoomBookings)
		roomBookings.GET("/:id", c.Branches.GetRoomBooking)
		roomBookings.POST("", c.Branches.CreateRoomBooking)
		roomBookings.PUT("/:id", c.Branches.UpdateRoomBooking)
		roomBookings.POST("/:id/cancel", c.Branches.CancelRoomBooking)
		roomBookings.DELETE("/:id", c.Branches.DeleteRoomBooking)
	}

	// Catalog
	authors := admin.Group("/authors")
	{
		authors.GET("", c.Catalog.ListAuthors)
		authors.GET("/:id", c.Catalog.GetAuthor)
		authors.POST("", manageBooks, c.Catalog.CreateAuthor)
		authors.PUT("/:id", manageBooks, c.Catalog.UpdateAuthor)
		authors.DELETE("/:id", manageBooks, c.Catalog.DeleteAuthor)
	}
	categories := admin.Group("/categories")
	{
		categories.GET("", c.Catalog.ListCategories)
		categories.GET("/:id", c.Catalog.GetCategory)
		categories.POST("", manageBooks, c.Catalog.CreateCategory)
		categories.PUT("/:id", manageBooks, c.Catalog.UpdateCategory)
		categories.DELETE("/:id", manageBooks, c.Catalog.DeleteCategory)
	}
	books := admin.Group("/books")
	{
		books.GET("", c.Catalog.ListBooks)
		books.GET("/:id", c.Catalog.GetBook)
		books.POST("", manageBooks, c.Catalog.CreateBook)
		books.PUT("/:id", manageBooks, c.Catalog.UpdateBook)
		books.DELETE("/:id", manageBooks, c.Catalog.DeleteBook)
		books.POST("/:id/cover", manageBooks, c.Catalog.UploadCover)
	}
	bookAuthors := admin.Group("/book-authors")
	{
		bookAuthors.GET("", c.Catalog.ListBookAuthors)
		bookAuthors.GET("/:id", c.Catalog.GetBookAuthor)
		bookAuthors.POST("", manageBooks, c.Catalog.CreateBookAuthor)
		bookAuthors.PUT("/:id", manageBooks, c.Catalog.UpdateBookAuthor)
		bookAuthors.DELETE("/:id", manageBooks, c.Catalog.DeleteBookAuthor)
	}
	bookCategories := admin.Group("/book-categories")
	{
		bookCategories.GET("", c.Catalog.ListBookCategories)
		bookCategories.GET("/:id", c.Catalog.GetBookCategory)
		bookCategories.POST("", manageBooks, c.Catalog.CreateBookCategory)
		bookCategories.PUT("/:id", manageBooks, c.Catalog.UpdateBookCategory)
		bookCategories.DELETE("/:id", manageBooks, c.Catalog.DeleteBookCategory)
	}
	reviews := admin.Group("/book-reviews")
	{
		reviews.GET("", c.Reviews.ListReviews)
		reviews.GET("/:id", c.Reviews.GetReview)
		reviews.POST("", manageBooks, c.Reviews.CreateReview)
		reviews.PUT("/:id", manageBooks, c.Reviews.UpdateReview)
		reviews.POST("/:id/approve", manageBooks, c.Reviews.ApproveReview)
		reviews.DELETE("/:id", manageBooks, c.Reviews.DeleteReview)
	}

	// Circulation
	copies := admin.Group("/book-copies")
	{
		copies.GET("", c.Circulation.ListCopies)
		copies.GET("/:id", c.Circulation.GetCopy)
		copies.POST("", manageBooks, c.Circulation.CreateCopy)
		copies.PUT("/:id", manageBooks, c.Circulation.UpdateCopy)
		copies.DELETE("/:id", manageBooks, c.Circulation.DeleteCopy)
	}
	bookings := admin.Group("/book-bookings", manageBookings)
	{
		bookings.GET("", c.Circulation.ListBookings)
		bookings.GET("/:id", c.Circulation.GetBooking)
		bookings.POST("", c.Circulation.CreateBooking)
		bookings.PUT("/:id", c.Circulation.UpdateBooking)
		bookings.DELETE("/:id", c.Circulation.DeleteBooking)
		bookings.POST("/:id/ready", c.Circulation.MarkBookingReady)
		bookings.POST("/:id/cancel", c.Circulation.CancelBooking)
		bookings.POST("/:id/issue", c.Circulation.IssueBooking)
		bookings.PATCH("/:id/status", c.Circulation.SetBookingStatus)
	}
	loans := admin.Group("/book-loans", manageBookings)
	{
		loans.GET("", c.Circulation.ListLoans)
		loans.GET("/:id", c.Circulation.GetLoan)
		loans.POST("", c.Circulation.CreateLoan)
		loans.PUT("/:id", c.Circulation.UpdateLoan)
		loans.DELETE("/:id", c.Circulation.DeleteLoan)
		loans.POST("/:id/renew", c.Circulation.RenewLoan)
		loans.POST("/:id/return", c.Circulation.ReturnLoan)
		loans.POST("/sweep", adminOnly, c.Circulation.Sweep)
	}
	queue := admin.Group("/book-queue", manageBookings)
	{
		queue.GET("", c.Queue.ListEntries)
		queue.GET("/:id", c.Queue.GetEntry)
		queue.POST("", c.Queue.JoinQueue)
		queue.PUT("/:id", c.Queue.UpdateEntry)
		queue.PATCH("/:id/status", c.Queue.SetEntryStatus)
		queue.DELETE("/:id", c.Queue.DeleteEntry)
		queue.POST("/notify-next", c.Queue.NotifyNext)
	}

	// Fines
	fines := admin.Group("/fines", manageBookings)
	{
		fines.GET("", c.Fines.ListFines)
		fines.GET("/:id", c.Fines.GetFine)
		fines.POST("", c.Fines.CreateFine)
		fines.PUT("/:id", c.Fines.UpdateFine)
		fines.DELETE("/:id", c.Fines.DeleteFine)
		fines.POST("/:id/pay", c.Fines.PayFine)
		fines.POST("/:id/cancel", c.Fines.CancelFine)
		fines.POST("/:id/reconcile", c.Fines.ReconcileFine)
		fines.POST("/reconcile", adminOnly, c.Fines.ReconcileAll)
	}
}
