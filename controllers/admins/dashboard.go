package admins

import (
	"net/http"
	"time"

	"chatbox/database"
	"chatbox/models"
	"chatbox/utils"
)

type DailySessions struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type DashboardStats struct {
	TotalSessions      int64           `json:"total_sessions"`
	ActiveSessions     int64           `json:"active_sessions"`
	EscalatedSessions  int64           `json:"escalated_sessions"`
	CompletedSessions  int64           `json:"completed_sessions"`
	ExistingCustomers  int64           `json:"existing_customers"`
	TotalMessages      int64           `json:"total_messages"`
	OpenTickets        int64           `json:"open_tickets"`
	TotalTickets       int64           `json:"total_tickets"`
	PendingDepartments int64           `json:"pending_departments"`
	SessionGrowth      []DailySessions `json:"session_growth"`
}

// GetDashboardStats returns the admin overview counters. "completed" is the
// display grouping of resolved and closed sessions; the stored statuses stay
// distinct.
func GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats
	db := database.DB

	stats.SessionGrowth = make([]DailySessions, 0)

	db.Model(&models.ChatSession{}).Count(&stats.TotalSessions)
	db.Model(&models.ChatSession{}).Where("status = ?", "active").Count(&stats.ActiveSessions)
	db.Model(&models.ChatSession{}).Where("status = ?", "escalated").Count(&stats.EscalatedSessions)
	db.Model(&models.ChatSession{}).Where("status IN ?", []string{"resolved", "closed"}).Count(&stats.CompletedSessions)
	db.Model(&models.ChatSession{}).Where("is_existing_customer = ?", true).Count(&stats.ExistingCustomers)
	db.Model(&models.ChatMessage{}).Count(&stats.TotalMessages)
	db.Model(&models.SupportTicket{}).Count(&stats.TotalTickets)
	db.Model(&models.SupportTicket{}).Where("status = ?", "open").Count(&stats.OpenTickets)
	db.Model(&models.DepartmentRequest{}).Where("status = ?", "pending").Count(&stats.PendingDepartments)

	// Sessions per day over the last 7 days
	growthMap := map[string]int64{}
	since := time.Now().AddDate(0, 0, -6).Truncate(24 * time.Hour)
	rows, err := db.Model(&models.ChatSession{}).
		Select("DATE(created_at) as day, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Rows()
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var day string
			var count int64
			if scanErr := rows.Scan(&day, &count); scanErr == nil {
				growthMap[day] = count
			}
		}
	}
	for i := 6; i >= 0; i-- {
		day := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		stats.SessionGrowth = append(stats.SessionGrowth, DailySessions{Day: day, Count: growthMap[day]})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Dashboard stats loaded",
		Data:    stats,
	})
}
