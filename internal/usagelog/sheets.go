package usagelog

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"license-relay-proxy/internal/model"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const BackendSheets = "sheets"

// SheetsWriter 将使用记录追加到 Google Sheet
type SheetsWriter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

var _ Writer = (*SheetsWriter)(nil)

func NewSheetsWriter(ctx context.Context, credentialPath, spreadsheetID, sheetName string) (*SheetsWriter, error) {
	// 读取凭证文件
	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, err
	}

	// 使用服务账号授权
	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("无法加载凭证: %v", err)
	}

	return NewSheetsWriterWithOptions(ctx, spreadsheetID, sheetName, option.WithCredentials(creds))
}

// NewSheetsWriterWithOptions 使用自定义客户端选项创建，例如指向测试服务的 endpoint
func NewSheetsWriterWithOptions(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*SheetsWriter, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &SheetsWriter{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (w *SheetsWriter) Backend() string { return BackendSheets }

func (w *SheetsWriter) Append(ctx context.Context, entry *model.UsageLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	// 准备数据
	values := [][]interface{}{{
		entry.CreatedAt.UTC().Format(time.RFC3339),
		entry.LicenseKey,
		entry.ProjectID,
		strconv.Itoa(entry.MessageLength),
	}}

	// 追加新行
	_, err := w.service.Spreadsheets.Values.Append(
		w.spreadsheetID,
		w.sheetName+"!A2:D",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("同步到Google Sheet失败: %w", err)
	}
	return nil
}
