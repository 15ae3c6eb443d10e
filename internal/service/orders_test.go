package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"rpa/runner/internal/domain"
	"rpa/runner/internal/domain/task"
	"rpa/runner/internal/queue"
	"rpa/runner/internal/report"
	"rpa/runner/internal/repository"
	"rpa/runner/internal/state"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	page       *fakePage
	downloader *fakeDownloader
	printer    *fakePrinter
	tracker    state.Tracker
	queue      *queue.MemoryQueue
	service    *OrderService
	dir        string
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	dir := t.TempDir()
	cfg := testOrdersConfig(dir)

	page := newFakePage()
	page.banner = cfg.Selectors.ErrorBanner
	page.visible[cfg.Selectors.Modal] = true
	page.visible[cfg.Selectors.Receipt] = true
	page.inner[cfg.Selectors.Receipt] = `<h3>Receipt</h3><div id="parts"><div>Head: 1</div></div>`
	page.outer[cfg.Selectors.Preview] = `<div id="robot-preview-image">
		<img src="/heads/1.png"><img src="/bodies/2.png"><img src="/legs/3.png">
	</div>`

	f := &orderFixture{
		page:       page,
		downloader: &fakeDownloader{fail: make(map[string]bool)},
		printer:    &fakePrinter{},
		tracker:    state.NewMemoryTracker(),
		queue:      queue.NewMemoryQueue(),
		dir:        dir,
	}
	f.service = NewOrderService(cfg, page, f.downloader, report.NewPDFRenderer(f.printer), f.tracker, f.queue, repository.NewLogRepository())
	return f
}

func orderRow(number string) domain.OrderRow {
	return domain.OrderRow{
		domain.ColumnOrderNumber: number,
		domain.ColumnHead:        "1",
		domain.ColumnBody:        "2",
		domain.ColumnLegs:        "3",
		domain.ColumnAddress:     "Address 123",
	}
}

func TestRunGeneratesArtifact(t *testing.T) {
	f := newOrderFixture(t)

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("7")})
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.Equal(t, f.service.RunID(), batch.RunID)

	row := batch.Rows[0]
	require.NoError(t, row.Err)
	require.Equal(t, domain.RowStateArtifactGenerated, row.State)
	require.Equal(t, 1, f.page.clickCount("#order"))
	require.Equal(t, 0, row.Submit.Retries)
	require.Equal(t, domain.AttemptResolved, row.Submit.Outcome)
	require.Equal(t, 1, f.page.clickCount("#order-another"))
	require.Equal(t, 1, f.page.clickCount(".btn-dark"))

	artifact := row.Artifact
	require.NotNil(t, artifact)
	require.Equal(t, filepath.Join(f.dir, "pdf", "7.pdf"), artifact.PDFPath)
	require.FileExists(t, artifact.PDFPath)
	require.Len(t, artifact.Images, 3)
	require.Equal(t, filepath.Join(f.dir, "images", "7", "robot_part_0.png"), artifact.Images[0])
	require.Equal(t, filepath.Join(f.dir, "images", "merged_robot_image_7.png"), artifact.MergedImage)

	merged, err := imaging.Open(artifact.MergedImage)
	require.NoError(t, err)
	require.Equal(t, 600, merged.Bounds().Dx())
	require.Equal(t, 60, merged.Bounds().Dy())

	require.Equal(t, []string{
		"https://robots.test/heads/1.png",
		"https://robots.test/bodies/2.png",
		"https://robots.test/legs/3.png",
	}, f.downloader.urls)

	require.Len(t, f.printer.documents, 1)
	require.Contains(t, f.printer.documents[0], "Order Details: 7")

	done, err := f.tracker.IsCompleted(context.Background(), "7")
	require.NoError(t, err)
	require.True(t, done)
	require.Zero(t, f.queue.Len(task.OrderRetryTaskType))
}

func TestRunRetriesWhileBannerVisible(t *testing.T) {
	f := newOrderFixture(t)
	f.page.bannerChecks = 3

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("1")})
	require.NoError(t, err)

	row := batch.Rows[0]
	require.Equal(t, domain.RowStateArtifactGenerated, row.State)
	require.Equal(t, 3, row.Submit.Retries)
	require.Equal(t, 4, f.page.clickCount("#order"))
	require.Equal(t, 3, row.Retries())
}

func TestRunProceedsWhenBannerNeverClears(t *testing.T) {
	f := newOrderFixture(t)
	f.page.bannerChecks = -1

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("2")})
	require.NoError(t, err)

	row := batch.Rows[0]
	require.Equal(t, domain.AttemptExhausted, row.Submit.Outcome)
	require.Equal(t, 11, f.page.clickCount("#order"))
	require.Equal(t, domain.AttemptExhausted, row.OrderAnother.Outcome)
	require.Equal(t, domain.RowStateArtifactGenerated, row.State)
}

func TestRunSkipsCompletedOrders(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.tracker.MarkCompleted(context.Background(), "5"))

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("5"), orderRow("6")})
	require.NoError(t, err)
	require.Equal(t, domain.RowStateSkipped, batch.Rows[0].State)
	require.Equal(t, domain.RowStateArtifactGenerated, batch.Rows[1].State)
	require.Equal(t, 1, f.page.clickCount("#order"))
}

func TestRunEmptyBodyNeverTouchesRadio(t *testing.T) {
	f := newOrderFixture(t)
	row := orderRow("3")
	row[domain.ColumnBody] = ""

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{row})
	require.NoError(t, err)
	require.Equal(t, domain.FieldSkipped, batch.Rows[0].Fields[1].Outcome)
	for sel := range f.page.clicks {
		require.False(t, strings.Contains(sel, "radio"), sel)
	}
}

func TestRunAbandonsRowWithoutReceipt(t *testing.T) {
	f := newOrderFixture(t)
	f.page.visible["#receipt"] = false

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("10"), orderRow("11")})
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)

	for _, row := range batch.Rows {
		require.Equal(t, domain.RowStateAbandoned, row.State)
		require.ErrorIs(t, row.Err, ErrReceiptMissing)
		require.Nil(t, row.Artifact)
	}
	require.Equal(t, 2, batch.Count(domain.RowStateAbandoned))
	require.Equal(t, 2, f.queue.Len(task.OrderRetryTaskType))

	// initial load plus one reload per abandoned row
	require.Len(t, f.page.navigations, 3)
	require.Zero(t, f.page.clickCount("#order-another"))

	done, err := f.tracker.IsCompleted(context.Background(), "10")
	require.NoError(t, err)
	require.False(t, done)
}

func TestRunContinuesAfterRowFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.page.clickErr["#order"] = errors.New("element detached")

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("20"), orderRow("21")})
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)
	require.Equal(t, domain.RowStateFailed, batch.Rows[0].State)
	require.Equal(t, domain.RowStateFailed, batch.Rows[1].State)
	require.Equal(t, 2, f.queue.Len(task.OrderRetryTaskType))
}

func TestRunSkipsMissingImages(t *testing.T) {
	f := newOrderFixture(t)
	f.downloader.fail["https://robots.test/bodies/2.png"] = true

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("30")})
	require.NoError(t, err)

	artifact := batch.Rows[0].Artifact
	require.NotNil(t, artifact)
	require.Len(t, artifact.Images, 2)
	require.FileExists(t, artifact.MergedImage)
}

func TestRunWithoutPreviewImages(t *testing.T) {
	f := newOrderFixture(t)
	f.page.outer["#robot-preview-image"] = `<div id="robot-preview-image"></div>`

	batch, err := f.service.Run(context.Background(), []domain.OrderRow{orderRow("31")})
	require.NoError(t, err)

	artifact := batch.Rows[0].Artifact
	require.NotNil(t, artifact)
	require.Empty(t, artifact.Images)
	require.Empty(t, artifact.MergedImage)
	require.FileExists(t, artifact.PDFPath)
}

func TestRunCancelled(t *testing.T) {
	f := newOrderFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := f.service.Run(ctx, []domain.OrderRow{orderRow("40")})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, batch.Rows)
	require.Zero(t, f.page.clickCount("#order"))
}

func TestReplayDrainsRetryQueue(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.queue.AddTask(ctx, &task.OrderRetryTask{
		RunID: "earlier",
		Row:   orderRow("50"),
		State: domain.RowStateAbandoned,
	})
	require.NoError(t, err)

	batch, err := f.service.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.Equal(t, domain.RowStateArtifactGenerated, batch.Rows[0].State)
	require.Zero(t, f.queue.Len(task.OrderRetryTaskType))
}

func TestReplayRequeuesRowsThatFailAgain(t *testing.T) {
	f := newOrderFixture(t)
	f.page.visible["#receipt"] = false
	ctx := context.Background()

	_, err := f.queue.AddTask(ctx, &task.OrderRetryTask{Row: orderRow("60"), RetryCount: 2})
	require.NoError(t, err)

	batch, err := f.service.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.RowStateAbandoned, batch.Rows[0].State)

	msg, err := f.queue.GetTask(ctx, task.OrderRetryTaskType)
	require.NoError(t, err)
	require.NotNil(t, msg)

	retryTask, err := task.UnmarshalTask[*task.OrderRetryTask](msg.TaskData)
	require.NoError(t, err)
	require.Equal(t, 3, retryTask.RetryCount)
	require.Equal(t, "60", retryTask.Row.OrderNumber())
	require.Equal(t, domain.RowStateAbandoned, retryTask.State)
}

func TestReplayKeepsRowsWhenPageFails(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.queue.AddTask(ctx, &task.OrderRetryTask{Row: orderRow("70"), State: domain.RowStateAbandoned})
	require.NoError(t, err)

	f.page.navigateErr = errors.New("net::ERR_CONNECTION_REFUSED")
	_, err = f.service.Replay(ctx)
	require.Error(t, err)
	require.Zero(t, f.queue.Len(task.OrderRetryTaskType))
	require.Equal(t, 1, f.queue.Unacked(task.OrderRetryTaskType))

	f.page.navigateErr = nil
	batch, err := f.service.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.Equal(t, "70", batch.Rows[0].OrderNumber)
	require.Equal(t, domain.RowStateArtifactGenerated, batch.Rows[0].State)
	require.Zero(t, f.queue.Unacked(task.OrderRetryTaskType))
	require.Zero(t, f.queue.Len(task.OrderRetryTaskType))
}

func TestReplayResumesInterruptedRow(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.queue.AddTask(context.Background(), &task.OrderRetryTask{Row: orderRow("80"), State: domain.RowStateFailed})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.page.beforeClick = func(sel string) {
		if sel == "#order" {
			cancel()
		}
	}

	_, err = f.service.Replay(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, f.queue.Unacked(task.OrderRetryTaskType))

	f.page.beforeClick = nil
	batch, err := f.service.Replay(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.Equal(t, domain.RowStateArtifactGenerated, batch.Rows[0].State)
	require.Zero(t, f.queue.Unacked(task.OrderRetryTaskType))
}

func TestReplayEmptyQueue(t *testing.T) {
	f := newOrderFixture(t)

	batch, err := f.service.Replay(context.Background())
	require.NoError(t, err)
	require.Empty(t, batch.Rows)
	require.Empty(t, f.page.navigations)
}

func TestSafeName(t *testing.T) {
	require.Equal(t, "a_b", safeName("a/b"))
	require.Equal(t, "Hello_ World", safeName(" Hello: World "))
	require.Equal(t, "untitled", safeName(".."))
	require.Equal(t, "x_y", safeName("x?y"))
}
