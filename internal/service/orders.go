package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rpa/runner/internal/browser"
	"rpa/runner/internal/client"
	"rpa/runner/internal/config"
	"rpa/runner/internal/domain"
	"rpa/runner/internal/domain/task"
	"rpa/runner/internal/queue"
	"rpa/runner/internal/report"
	"rpa/runner/internal/repository"
	"rpa/runner/internal/state"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrReceiptMissing marks a row whose receipt never appeared after submission
var ErrReceiptMissing = errors.New("receipt did not appear")

// OrderService drives the order form row by row through one browser page
type OrderService struct {
	page       browser.Page
	fields     []FieldSpec
	retrier    *bannerRetrier
	artifacts  *artifactBuilder
	tracker    state.Tracker
	queue      queue.Queue
	repository repository.OrderRepository
	cfg        config.OrdersConfig
	runID      string
}

func NewOrderService(
	cfg config.OrdersConfig,
	page browser.Page,
	downloader client.Downloader,
	renderer report.Renderer,
	tracker state.Tracker,
	queue queue.Queue,
	repository repository.OrderRepository,
) *OrderService {
	return &OrderService{
		page:   page,
		fields: OrderFields(cfg.Selectors),
		retrier: &bannerRetrier{
			page:     page,
			banner:   cfg.Selectors.ErrorBanner,
			ceiling:  cfg.MaxRetries,
			interval: cfg.RetryInterval,
		},
		artifacts: &artifactBuilder{
			page:       page,
			downloader: downloader,
			renderer:   renderer,
			cfg:        cfg,
		},
		tracker:    tracker,
		queue:      queue,
		repository: repository,
		cfg:        cfg,
		runID:      uuid.NewString(),
	}
}

// RunID identifies this service's batches in the ledger and the retry queue
func (s *OrderService) RunID() string {
	return s.runID
}

// pendingRow is a row waiting to be processed, with the replays it already had
type pendingRow struct {
	row     domain.OrderRow
	replays int
}

// Run processes rows strictly in order. A row that fails is recorded, queued for
// a later replay and the page is reloaded, so only cancellation stops the batch.
func (s *OrderService) Run(ctx context.Context, rows []domain.OrderRow) (*domain.BatchReport, error) {
	pending := make([]pendingRow, len(rows))
	for i, row := range rows {
		pending[i] = pendingRow{row: row}
	}
	return s.run(ctx, pending)
}

// Replay drains the retry queue and processes the rows it held, starting with
// rows an earlier replay read but never finished. Rows that fail again are
// queued with an incremented replay count.
func (s *OrderService) Replay(ctx context.Context) (*domain.BatchReport, error) {
	var (
		pending []pendingRow
		msgs    []queue.Message
	)
	collect := func(msg queue.Message) {
		retryTask, err := task.UnmarshalTask[*task.OrderRetryTask](msg.TaskData)
		if err != nil {
			log.Errorf("❌ Dropping malformed retry task %s: %v", msg.ID, err)
			s.ack(ctx, msg)
			return
		}
		pending = append(pending, pendingRow{row: retryTask.Row, replays: retryTask.RetryCount + 1})
		msgs = append(msgs, msg)
	}

	stale, err := s.queue.AutoClaim(ctx, task.OrderRetryTaskType, s.cfg.ReplayMinIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to claim unfinished retry tasks: %w", err)
	}
	for _, msg := range stale {
		collect(msg)
	}

	for {
		msg, err := s.queue.GetTask(ctx, task.OrderRetryTaskType)
		if err != nil {
			return nil, fmt.Errorf("failed to read retry queue: %w", err)
		}
		if msg == nil {
			break
		}
		collect(*msg)
	}

	if len(pending) == 0 {
		log.Infof("✅ Retry queue is empty, nothing to replay")
		return &domain.BatchReport{RunID: s.runID}, nil
	}

	log.Infof("🔄 Replaying %d orders from the retry queue (%d unfinished)", len(pending), len(stale))
	batch, err := s.run(ctx, pending)

	// Rows that failed again were re-queued by run, their originals are done.
	// Rows run never finished stay unacked and are claimed by the next replay.
	acked := 0
	for i, rowReport := range batch.Rows {
		if err != nil && i == len(batch.Rows)-1 && rowReport.Err != nil {
			break
		}
		s.ack(ctx, msgs[i])
		acked++
	}
	if unfinished := len(msgs) - acked; unfinished > 0 {
		log.Warnf("⚠️ %d retry tasks left for the next replay", unfinished)
	}

	return batch, err
}

func (s *OrderService) ack(ctx context.Context, msg queue.Message) {
	if err := s.queue.AckTask(context.WithoutCancel(ctx), msg.TaskType, msg.ID); err != nil {
		log.Errorf("❌ Failed to ack message %s: %v", msg.ID, err)
	}
}

func (s *OrderService) run(ctx context.Context, pending []pendingRow) (*domain.BatchReport, error) {
	batch := &domain.BatchReport{RunID: s.runID}
	log.Infof("🚀 Processing %d orders (run %s)", len(pending), s.runID)

	if err := s.page.Navigate(ctx, s.cfg.URL); err != nil {
		return batch, fmt.Errorf("failed to open order page: %w", err)
	}

	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			log.Warnf("🛑 Batch cancelled after %d of %d rows", i, len(pending))
			return batch, err
		}

		rowReport := s.processRow(ctx, i, p.row)
		batch.Rows = append(batch.Rows, rowReport)
		s.record(ctx, rowReport)

		if rowReport.Err == nil {
			continue
		}
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}

		if rowReport.State == domain.RowStateAbandoned || rowReport.State == domain.RowStateFailed {
			s.enqueueRetry(ctx, p, rowReport)
		}
		s.reload(ctx)
	}

	log.Infof("✅ Run %s finished: %d generated, %d skipped, %d abandoned, %d failed",
		s.runID,
		batch.Count(domain.RowStateArtifactGenerated),
		batch.Count(domain.RowStateSkipped),
		batch.Count(domain.RowStateAbandoned),
		batch.Count(domain.RowStateFailed))

	return batch, nil
}

func (s *OrderService) processRow(ctx context.Context, index int, row domain.OrderRow) *domain.RowReport {
	rowReport := &domain.RowReport{
		Index:       index,
		OrderNumber: row.OrderNumber(),
		State:       domain.RowStateIdle,
	}
	logger := log.WithFields(log.Fields{"row": index + 1, "order": rowReport.OrderNumber})

	fail := func(err error) *domain.RowReport {
		logger.Errorf("❌ Order failed in state %s: %v", rowReport.State, err)
		rowReport.State = domain.RowStateFailed
		rowReport.Err = err
		return rowReport
	}

	if rowReport.OrderNumber != "" {
		done, err := s.tracker.IsCompleted(ctx, rowReport.OrderNumber)
		if err != nil {
			logger.Warnf("⚠️ Could not check completion state: %v", err)
		}
		if done {
			logger.Infof("⏭️ Order already completed, skipping")
			rowReport.State = domain.RowStateSkipped
			return rowReport
		}
	}

	if err := s.dismissModal(ctx); err != nil {
		return fail(err)
	}
	rowReport.State = domain.RowStateModalDismissed

	rowReport.Fields = fillFields(ctx, s.page, s.fields, row, logger)
	rowReport.State = domain.RowStateFieldsFilled

	sel := s.cfg.Selectors
	if err := s.page.Click(ctx, sel.Submit); err != nil {
		return fail(fmt.Errorf("failed to submit: %w", err))
	}
	rowReport.State = domain.RowStateSubmitted

	submit, err := s.retrier.resolve(ctx, sel.Submit, func() { rowReport.State = domain.RowStateRetryingError })
	rowReport.Submit = submit
	if err != nil {
		return fail(fmt.Errorf("failed to resolve submission: %w", err))
	}
	rowReport.State = domain.RowStateSubmitted

	if err := sleep(ctx, s.cfg.RowPause); err != nil {
		return fail(err)
	}

	if err := s.page.WaitVisible(ctx, sel.Receipt, s.cfg.ReceiptTimeout); err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		logger.Warnf("⚠️ Receipt did not appear after %d retries, abandoning order", submit.Retries)
		rowReport.State = domain.RowStateAbandoned
		rowReport.Err = fmt.Errorf("%w: %v", ErrReceiptMissing, err)
		return rowReport
	}
	rowReport.State = domain.RowStateConfirmed

	orderNumber := rowReport.OrderNumber
	if orderNumber == "" {
		orderNumber = fmt.Sprintf("row-%d", index+1)
	}

	artifact, err := s.artifacts.build(ctx, orderNumber)
	if err != nil {
		return fail(fmt.Errorf("failed to generate artifacts: %w", err))
	}
	rowReport.Artifact = artifact
	rowReport.State = domain.RowStateArtifactGenerated
	logger.Infof("📄 Receipt saved to %s", artifact.PDFPath)

	if rowReport.OrderNumber != "" {
		if err := s.tracker.MarkCompleted(ctx, rowReport.OrderNumber); err != nil {
			logger.Warnf("⚠️ Could not mark order completed: %v", err)
		}
	}

	// the artifact is safe on disk from here, errors only mean the page needs a reload
	if err := s.page.Click(ctx, sel.OrderAnother); err != nil {
		rowReport.Err = fmt.Errorf("failed to order another robot: %w", err)
		logger.Warnf("⚠️ %v", rowReport.Err)
		return rowReport
	}
	another, err := s.retrier.resolve(ctx, sel.OrderAnother, nil)
	rowReport.OrderAnother = another
	if err != nil {
		rowReport.Err = fmt.Errorf("failed to resolve order another: %w", err)
		logger.Warnf("⚠️ %v", rowReport.Err)
		return rowReport
	}

	if err := sleep(ctx, s.cfg.RowPause); err != nil {
		rowReport.Err = err
	}

	return rowReport
}

// dismissModal closes the consent modal when it shows up within the modal timeout
func (s *OrderService) dismissModal(ctx context.Context) error {
	modal := s.cfg.Selectors.Modal
	if err := s.page.WaitVisible(ctx, modal, s.cfg.ModalTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debugf("No modal to dismiss: %v", err)
		return nil
	}

	if err := s.page.Click(ctx, modal); err != nil {
		return fmt.Errorf("failed to dismiss modal: %w", err)
	}
	return nil
}

// reload brings the page back to a fresh order form after a failed row
func (s *OrderService) reload(ctx context.Context) {
	if err := s.page.Navigate(ctx, s.cfg.URL); err != nil {
		log.Errorf("❌ Failed to reload order page: %v", err)
	}
}

func (s *OrderService) enqueueRetry(ctx context.Context, p pendingRow, rowReport *domain.RowReport) {
	retryTask := &task.OrderRetryTask{
		RunID:      s.runID,
		Row:        p.row,
		State:      rowReport.State,
		RetryCount: p.replays,
		Error:      rowReport.Err.Error(),
	}

	if _, err := s.queue.AddTask(ctx, retryTask); err != nil {
		log.Errorf("❌ Failed to add retry task for order %s: %v", rowReport.OrderNumber, err)
		return
	}
	log.Warnf("🔄 Added order %s to retry queue (replay %d)", rowReport.OrderNumber, p.replays)
}

func (s *OrderService) record(ctx context.Context, rowReport *domain.RowReport) {
	record := &domain.OrderRecord{
		RunID:       s.runID,
		OrderNumber: rowReport.OrderNumber,
		State:       rowReport.State,
		Retries:     rowReport.Retries(),
		ProcessedAt: time.Now().UTC(),
	}
	if rowReport.Artifact != nil {
		record.PDFPath = rowReport.Artifact.PDFPath
	}
	if rowReport.Err != nil {
		record.Error = rowReport.Err.Error()
	}

	if err := s.repository.SaveRecord(ctx, record); err != nil {
		log.Errorf("❌ Failed to save record of order %s: %v", rowReport.OrderNumber, err)
	}
}
