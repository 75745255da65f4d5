// Package gdrive lists Google Docs in a Drive folder and extracts their
// plain text through the Docs API.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"docchat/pkg/types"
)

// MimeTypeGoogleDoc is the Drive MIME type for native Google Docs.
const MimeTypeGoogleDoc = "application/vnd.google-apps.document"

// Conservative limit, below Google's 10 requests/sec/user quota.
const requestsPerSecond = 8

// Folder is a document source backed by one Google Drive folder.
type Folder struct {
	drive    *drive.Service
	docs     *docs.Service
	folderID string
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a Drive folder source using a service account credentials
// file with read-only Drive and Docs scopes.
func New(ctx context.Context, credentialsFile, folderID string, logger *slog.Logger) (*Folder, error) {
	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	docsSvc, err := docs.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(docs.DocumentsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}
	return &Folder{
		drive:    driveSvc,
		docs:     docsSvc,
		folderID: folderID,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 10),
		logger:   logger,
	}, nil
}

// ListDocuments implements source.Source: it lists all Google Docs in the
// folder, newest first, and reads each one's text. A document that fails
// to read is skipped and logged; listing failures are classified and
// returned.
func (f *Folder) ListDocuments(ctx context.Context) ([]types.Document, error) {
	files, err := f.listFolder(ctx)
	if err != nil {
		return nil, classify(err)
	}

	docsOut := make([]types.Document, 0, len(files))
	for _, file := range files {
		text, err := f.readDocument(ctx, file.Id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("skipping unreadable document", "id", file.Id, "title", file.Name, "error", err)
			continue
		}
		docsOut = append(docsOut, types.Document{
			ID:       file.Id,
			Title:    file.Name,
			Text:     text,
			Modified: file.ModifiedTime,
			Metadata: map[string]string{"mime_type": MimeTypeGoogleDoc},
		})
	}
	return docsOut, nil
}

func (f *Folder) listFolder(ctx context.Context) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", f.folderID, MimeTypeGoogleDoc)

	var files []*drive.File
	pageToken := ""
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := f.drive.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, modifiedTime)").
			OrderBy("modifiedTime desc").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

func (f *Folder) readDocument(ctx context.Context, documentID string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	doc, err := f.docs.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}
	return extractText(doc), nil
}

// extractText walks the document body collecting text runs from
// paragraphs and table cells.
func extractText(doc *docs.Document) string {
	var sb strings.Builder
	if doc.Body == nil {
		return ""
	}
	for _, element := range doc.Body.Content {
		writeStructuralElement(&sb, element)
	}
	return strings.TrimSpace(sb.String())
}

func writeStructuralElement(sb *strings.Builder, element *docs.StructuralElement) {
	if element.Paragraph != nil {
		for _, pe := range element.Paragraph.Elements {
			if pe.TextRun != nil {
				sb.WriteString(pe.TextRun.Content)
			}
		}
	}
	if element.Table != nil {
		for _, row := range element.Table.TableRows {
			for _, cell := range row.TableCells {
				for _, cellElement := range cell.Content {
					writeStructuralElement(sb, cellElement)
				}
			}
		}
	}
}

// classify maps Google API status codes onto the docchat error taxonomy.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", types.ErrNotFound, err)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", types.ErrPermission, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", types.ErrRateLimit, err)
	default:
		return err
	}
}
