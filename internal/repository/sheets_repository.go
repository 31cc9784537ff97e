package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetColumns is the header row of the task sheet. Column order is part of
// the storage format.
var sheetColumns = []string{
	"id", "taskId", "kind", "recurrenceInterval", "description", "owner", "assignedBy",
	"supporters", "startDate", "dueDate", "priority", "estimatedHours", "status",
	"dailyHours", "remarks", "difficulties", "subTaskLink", "version", "createdAt", "updatedAt",
}

const lastSheetColumn = "T"

// SheetsTaskRepository stores one task per row of a Google spreadsheet.
// Row 1 holds the header; data starts at row 2.
type SheetsTaskRepository struct {
	srv           *sheets.Service
	spreadsheetID string
	sheet         string

	// serializes read-modify-write cycles issued by this process
	mu sync.Mutex
}

// NewSheetsService builds a Sheets client from a service-account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file %s: %w", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return srv, nil
}

// NewSheetsTaskRepository creates a repository over the given sheet tab.
func NewSheetsTaskRepository(srv *sheets.Service, spreadsheetID, sheet string) *SheetsTaskRepository {
	if sheet == "" {
		sheet = "Tasks"
	}
	return &SheetsTaskRepository{srv: srv, spreadsheetID: spreadsheetID, sheet: sheet}
}

// EnsureHeader writes the header row when the sheet is empty.
func (r *SheetsTaskRepository) EnsureHeader(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resp, err := r.srv.Spreadsheets.Values.Get(r.spreadsheetID, r.sheet+"!A1:"+lastSheetColumn+"1").Context(ctx).Do()
	if err != nil {
		return apperr.Repo("read header", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	header := make([]any, len(sheetColumns))
	for i, c := range sheetColumns {
		header[i] = c
	}
	_, err = r.srv.Spreadsheets.Values.Update(r.spreadsheetID, r.sheet+"!A1:"+lastSheetColumn+"1",
		&sheets.ValueRange{Values: [][]any{header}}).ValueInputOption("RAW").Context(ctx).Do()
	return apperr.Repo("write header", err)
}

func (r *SheetsTaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	tasks, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	if idx := indexOf(tasks, id); idx >= 0 {
		return tasks[idx], nil
	}
	return nil, apperr.ErrNotFound
}

func (r *SheetsTaskRepository) GetByTaskID(ctx context.Context, taskID string) (*models.Task, error) {
	tasks, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID != "" && t.TaskID == taskID {
			return t, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *SheetsTaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID != "" && t.TaskID == task.TaskID {
			return nil, apperr.ErrDuplicateTaskID
		}
	}

	row := task.Clone()
	if row.Version == 0 {
		row.Version = 1
	}
	row.SyncDerived()
	_, err = r.srv.Spreadsheets.Values.Append(r.spreadsheetID, r.dataRange(),
		&sheets.ValueRange{Values: [][]any{taskToRow(row)}}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return nil, apperr.Repo("append row", err)
	}
	return row, nil
}

func (r *SheetsTaskRepository) Update(ctx context.Context, id string, patch Patch) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(tasks, id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}
	if !patch.VersionMatches(tasks[idx].Version) {
		return nil, apperr.ErrConflict
	}

	next := patch.Apply(tasks[idx])
	rowNum := idx + 2
	rng := fmt.Sprintf("%s!A%d:%s%d", r.sheet, rowNum, lastSheetColumn, rowNum)
	_, err = r.srv.Spreadsheets.Values.Update(r.spreadsheetID, rng,
		&sheets.ValueRange{Values: [][]any{taskToRow(next)}}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, apperr.Repo("update row", err)
	}
	return next, nil
}

func (r *SheetsTaskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.readAll(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(tasks, id)
	if idx < 0 {
		return apperr.ErrNotFound
	}
	sheetID, err := r.sheetID(ctx)
	if err != nil {
		return err
	}

	// zero-based, header included
	start := int64(idx + 1)
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   start + 1,
				},
			},
		}},
	}
	if _, err := r.srv.Spreadsheets.BatchUpdate(r.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return apperr.Repo("delete row", err)
	}
	return nil
}

func (r *SheetsTaskRepository) ListAll(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0, len(rows))
	for _, t := range rows {
		if t.ID != "" {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (r *SheetsTaskRepository) dataRange() string {
	return r.sheet + "!A2:" + lastSheetColumn
}

// readAll returns every data row in sheet order. Blank rows keep their slot
// as an empty task so row numbers stay aligned; callers never see them.
func (r *SheetsTaskRepository) readAll(ctx context.Context) ([]*models.Task, error) {
	resp, err := r.srv.Spreadsheets.Values.Get(r.spreadsheetID, r.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Repo("read rows", err)
	}
	tasks := make([]*models.Task, 0, len(resp.Values))
	for _, row := range resp.Values {
		tasks = append(tasks, rowToTask(row))
	}
	return tasks, nil
}

func (r *SheetsTaskRepository) sheetID(ctx context.Context) (int64, error) {
	ss, err := r.srv.Spreadsheets.Get(r.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, apperr.Repo("read spreadsheet", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == r.sheet {
			return s.Properties.SheetId, nil
		}
	}
	return 0, apperr.Repo("read spreadsheet", fmt.Errorf("sheet %q not found", r.sheet))
}

func indexOf(tasks []*models.Task, id string) int {
	if id == "" {
		return -1
	}
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func taskToRow(t *models.Task) []any {
	return []any{
		t.ID,
		t.TaskID,
		string(t.Kind),
		string(t.RecurrenceInterval),
		t.Description,
		t.Owner,
		t.AssignedBy,
		strings.Join(t.Supporters, ","),
		t.StartDate,
		t.DueDate,
		string(t.Priority),
		strconv.FormatFloat(t.EstimatedHours, 'f', -1, 64),
		string(t.Status),
		t.DailyHours,
		t.Remarks,
		t.Difficulties,
		t.SubTaskLink,
		strconv.Itoa(t.Version),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	}
}

// rowToTask is lenient: short rows and unparseable numbers read as zero values.
func rowToTask(row []any) *models.Task {
	cell := func(i int) string {
		if i >= len(row) || row[i] == nil {
			return ""
		}
		if s, ok := row[i].(string); ok {
			return s
		}
		return fmt.Sprint(row[i])
	}

	t := &models.Task{
		ID:                 cell(0),
		TaskID:             cell(1),
		Kind:               models.TaskKind(cell(2)),
		RecurrenceInterval: models.RecurrenceInterval(cell(3)),
		Description:        cell(4),
		Owner:              cell(5),
		AssignedBy:         cell(6),
		StartDate:          cell(8),
		DueDate:            cell(9),
		Priority:           models.TaskPriority(cell(10)),
		Status:             models.TaskStatus(cell(12)),
		DailyHours:         cell(13),
		Remarks:            cell(14),
		Difficulties:       cell(15),
		SubTaskLink:        cell(16),
		CreatedAt:          parseTime(cell(18)),
		UpdatedAt:          parseTime(cell(19)),
	}
	if s := strings.TrimSpace(cell(7)); s != "" {
		t.Supporters = strings.Split(s, ",")
	}
	t.EstimatedHours, _ = strconv.ParseFloat(strings.TrimSpace(cell(11)), 64)
	t.Version, _ = strconv.Atoi(strings.TrimSpace(cell(17)))
	t.SyncDerived()
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ TaskRepository = (*SheetsTaskRepository)(nil)
