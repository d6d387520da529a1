package drive

// client.go — the Drive and Sheets calls the downloader needs.
//
// Client is the seam between the download walk and Google's APIs; tests use
// an in-memory implementation.

import (
	"context"
	"fmt"
	"io"
	"net/http"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// MIME types the walk distinguishes.
const (
	FolderMIME      = "application/vnd.google-apps.folder"
	SpreadsheetMIME = "application/vnd.google-apps.spreadsheet"
	XLSXMIME        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is a Drive folder child.
type File struct {
	ID       string
	Name     string
	MimeType string
}

// IsFolder reports whether f is a folder.
func (f File) IsFolder() bool { return f.MimeType == FolderMIME }

// IsSpreadsheet reports whether f is a Google spreadsheet.
func (f File) IsSpreadsheet() bool { return f.MimeType == SpreadsheetMIME }

// Client lists Drive folders and reads spreadsheets.
type Client interface {
	// ListFolder returns the children of folderID. driveID may be empty for
	// folders outside a shared drive.
	ListFolder(ctx context.Context, driveID, folderID string) ([]File, error)
	// Worksheets returns the worksheet titles of a spreadsheet in order.
	Worksheets(ctx context.Context, spreadsheetID string) ([]string, error)
	// Values returns the cell values in an A1 range, row by row.
	Values(ctx context.Context, spreadsheetID, cellRange string) ([][]string, error)
	// ExportXLSX streams the spreadsheet as an xlsx workbook into w.
	ExportXLSX(ctx context.Context, spreadsheetID string, w io.Writer) error
}

// GoogleClient implements Client with the Drive v3 and Sheets v4 APIs. Every
// call waits on Limiter first.
type GoogleClient struct {
	drive   *gdrive.Service
	sheets  *sheets.Service
	limiter *Limiter
}

// NewGoogleClient builds API handles on an authorised HTTP client.
func NewGoogleClient(ctx context.Context, hc *http.Client, limiter *Limiter) (*GoogleClient, error) {
	d, err := gdrive.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	s, err := sheets.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &GoogleClient{drive: d, sheets: s, limiter: limiter}, nil
}

func (c *GoogleClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *GoogleClient) ListFolder(ctx context.Context, driveID, folderID string) ([]File, error) {
	var out []File
	token := ""
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		call := c.drive.Files.List().
			Context(ctx).
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			Fields("nextPageToken, files(id, name, mimeType)").
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true)
		if driveID != "" {
			call = call.Corpora("drive").DriveId(driveID)
		}
		if token != "" {
			call = call.PageToken(token)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		for _, f := range res.Files {
			out = append(out, File{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
		}
		if res.NextPageToken == "" {
			return out, nil
		}
		token = res.NextPageToken
	}
}

func (c *GoogleClient) Worksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	titles := make([]string, 0, len(res.Sheets))
	for _, s := range res.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (c *GoogleClient) Values(ctx context.Context, spreadsheetID, cellRange string) ([][]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, cellRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s %s: %w", spreadsheetID, cellRange, err)
	}
	rows := make([][]string, len(res.Values))
	for i, r := range res.Values {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = fmt.Sprint(v)
		}
		rows[i] = row
	}
	return rows, nil
}

func (c *GoogleClient) ExportXLSX(ctx context.Context, spreadsheetID string, w io.Writer) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	resp, err := c.drive.Files.Export(spreadsheetID, XLSXMIME).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("export %s: %w", spreadsheetID, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("export %s: %w", spreadsheetID, err)
	}
	return nil
}
