package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const bookingsSheet = "Bookings"

type userCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

type bikeCounter interface {
	CountBikes(ctx context.Context) (int, error)
}

type AdminService struct {
	users      userCounter
	bikes      bikeCounter
	bookings   domain.BookingRepository
	activity   domain.ActivityRepository
	exportPath string
	location   *time.Location
	logger     *zerolog.Logger
}

func NewAdminService(
	users userCounter,
	bikes bikeCounter,
	bookings domain.BookingRepository,
	activity domain.ActivityRepository,
	exportPath string,
	location *time.Location,
	logger *zerolog.Logger,
) *AdminService {
	if location == nil {
		location = time.UTC
	}
	return &AdminService{
		users:      users,
		bikes:      bikes,
		bookings:   bookings,
		activity:   activity,
		exportPath: exportPath,
		location:   location,
		logger:     logger,
	}
}

func (s *AdminService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	bikes, err := s.bikes.CountBikes(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.bookings.CountBookingsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalUsers:       users,
		TotalBikes:       bikes,
		BookingsByStatus: byStatus,
	}
	for _, n := range byStatus {
		stats.TotalBookings += n
	}
	return stats, nil
}

func (s *AdminService) RecordActivity(ctx context.Context, entry *models.ActivityLog) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	return s.activity.CreateActivityLog(ctx, entry)
}

// ActivityLogs returns one page of the activity log, newest first. page is 1-based.
func (s *AdminService) ActivityLogs(ctx context.Context, page, size int) ([]*models.ActivityLog, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = models.DefaultPaginationSize
	}
	return s.activity.GetActivityLogs(ctx, size, (page-1)*size)
}

// ExportBookings writes bookings scheduled in [from, to] to an XLSX file and returns its path.
func (s *AdminService) ExportBookings(ctx context.Context, from, to time.Time) (string, error) {
	if to.Before(from) {
		return "", domain.Errorf(domain.ErrValidation, "end date must not be before start date")
	}
	if err := os.MkdirAll(s.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	all, err := s.bookings.ListBookingDetails(ctx, domain.BookingFilter{})
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}
	rows := make([]*models.BookingDetails, 0, len(all))
	for _, b := range all {
		if !b.ScheduledAt.Before(from) && !b.ScheduledAt.After(to) {
			rows = append(rows, b)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(bookingsSheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.In(s.location).Format("2006-01-02"), to.In(s.location).Format("2006-01-02")))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.MergeCell(bookingsSheet, "A1", "J1")
	_ = f.SetCellStyle(bookingsSheet, "A1", "A1", titleStyle)

	headers := []string{"ID", "Scheduled", "Status", "Customer", "Phone", "Bike", "Bike number", "Chasis number", "Address", "Total"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(bookingsSheet, cell, h)
		_ = f.SetCellStyle(bookingsSheet, cell, cell, headerStyle)
	}

	styles := s.statusStyles(f)
	for i, b := range rows {
		row := i + 3
		values := []interface{}{
			b.ID,
			b.ScheduledAt.In(s.location).Format("2006-01-02 15:04"),
			b.Status,
			"", "", "",
			b.BikeNumber,
			b.ChasisNumber,
			b.Address,
			b.Total,
		}
		if b.User != nil {
			values[3] = b.User.FullName
			values[4] = b.User.Phone
		}
		if b.Bike != nil {
			values[5] = fmt.Sprintf("%s %s", b.Bike.Name, b.Bike.Model)
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, v)
		}
		if style, ok := styles[b.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(3, row)
			_ = f.SetCellStyle(bookingsSheet, cell, cell, style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "I", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx", from.In(s.location).Format("2006-01-02"), to.In(s.location).Format("2006-01-02"))
	filePath := filepath.Join(s.exportPath, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	s.logger.Info().Str("file_path", filePath).Int("rows", len(rows)).Msg("Bookings export created")
	return filePath, nil
}

func (s *AdminService) statusStyles(f *excelize.File) map[string]int {
	colors := map[string]string{
		models.StatusPending:   "#FFEB9C",
		models.StatusCompleted: "#C6EFCE",
		models.StatusCanceled:  "#FFC7CE",
	}
	styles := make(map[string]int, len(colors))
	for status, color := range colors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			styles[status] = id
		}
	}
	return styles
}
