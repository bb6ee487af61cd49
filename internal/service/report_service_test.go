package service

import (
	"bytes"
	"context"
	"finguard_backend/internal/model"
	"finguard_backend/internal/repository"
	"finguard_backend/internal/testutil"
	"finguard_backend/internal/util"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func evidenceFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("evidence", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["evidence"][0]
}

func newReportService(t *testing.T, f *progressionFixture) (*ReportService, string) {
	t.Helper()
	cfg := testutil.NewTestConfig(t)
	return NewReportService(repository.NewReportRepository(f.db), NewStorageService(cfg), f.svc, cfg), cfg.Storage.LocalPath
}

func TestSubmitReport(t *testing.T) {
	f := newProgressionFixture(t)
	svc, root := newReportService(t, f)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, f.user.ID, ReportInput{
		Category:    " UPI ",
		Description: "Fake collect request",
		Latitude:    19.0760,
		Longitude:   72.8777,
		City:        "Mumbai",
		AmountLost:  2500,
	}, evidenceFile(t, "screenshot.png", pngHeader))
	require.NoError(t, err)

	report := receipt.Report
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "upi", report.Category)
	assert.Equal(t, model.ReportPending, report.Status)
	require.True(t, strings.HasPrefix(report.EvidenceURL, "/uploads/evidence/"), report.EvidenceURL)
	assert.True(t, strings.HasSuffix(report.EvidenceURL, ".png"))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(report.EvidenceURL, "/uploads/"))))
	assert.NoError(t, err)

	require.NotNil(t, receipt.Progression)
	assert.Equal(t, 15, receipt.Progression.XPResult.XPGained)

	mine, err := svc.Mine(ctx, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, report.ID, mine[0].ID)
}

func TestSubmitReport_Rejections(t *testing.T) {
	f := newProgressionFixture(t)
	svc, _ := newReportService(t, f)
	ctx := context.Background()
	valid := ReportInput{Category: "upi", Latitude: 12.97, Longitude: 77.59}

	_, err := svc.Submit(ctx, f.user.ID, ReportInput{Category: "upi", Latitude: 91, Longitude: 0}, nil)
	assert.ErrorIs(t, err, util.ErrInvalidCoordinates)

	_, err = svc.Submit(ctx, f.user.ID, valid, evidenceFile(t, "notes.txt", []byte("just some text")))
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	svc.MaxUpload = 8
	_, err = svc.Submit(ctx, f.user.ID, valid, evidenceFile(t, "big.png", pngHeader))
	assert.ErrorIs(t, err, util.ErrFileTooLarge)

	mine, err := svc.Mine(ctx, f.user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestHeatmap(t *testing.T) {
	f := newProgressionFixture(t)
	svc, _ := newReportService(t, f)
	ctx := context.Background()

	submit := func(category string, lat, lng float64) *model.ScamReport {
		receipt, err := svc.Submit(ctx, f.user.ID, ReportInput{Category: category, Latitude: lat, Longitude: lng}, nil)
		require.NoError(t, err)
		return receipt.Report
	}
	submit("upi", 19.0761, 72.8775)
	submit("upi", 19.0759, 72.8779)
	verified := submit("upi", 28.6139, 77.2090)
	rejected := submit("upi", 28.6141, 77.2091)
	submit("lottery", 12.9716, 77.5946)

	_, err := svc.UpdateStatus(ctx, verified.ID, model.ReportVerified)
	require.NoError(t, err)
	updated, err := svc.UpdateStatus(ctx, rejected.ID, model.ReportRejected)
	require.NoError(t, err)
	assert.Equal(t, model.ReportRejected, updated.Status)

	cells, err := svc.Heatmap(ctx, HeatmapQuery{Category: "UPI", Days: 7})
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, 2, cells[0].Count)
	assert.InDelta(t, 19.08, cells[0].Latitude, 1e-9)
	assert.InDelta(t, 72.88, cells[0].Longitude, 1e-9)
	assert.Equal(t, 1, cells[1].Count)
	assert.InDelta(t, 28.61, cells[1].Latitude, 1e-9)

	cells, err = svc.Heatmap(ctx, HeatmapQuery{})
	require.NoError(t, err)
	assert.Len(t, cells, 3)

	// 精度上限为 4 位小数
	cells, err = svc.Heatmap(ctx, HeatmapQuery{Precision: 9})
	require.NoError(t, err)
	assert.Len(t, cells, 4)
}

func TestUpdateReportStatus_Errors(t *testing.T) {
	f := newProgressionFixture(t)
	svc, _ := newReportService(t, f)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "missing-id", model.ReportVerified)
	assert.ErrorIs(t, err, util.ErrReportNotFound)

	_, err = svc.UpdateStatus(ctx, "missing-id", model.ReportStatus("archived"))
	assert.ErrorIs(t, err, util.ErrInvalidStatus)
}
