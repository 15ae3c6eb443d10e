package service

import (
	"context"
	"time"

	"rpa/runner/internal/browser"
	"rpa/runner/internal/domain"

	log "github.com/sirupsen/logrus"
)

// bannerRetrier re-clicks a target while the error banner stays visible
type bannerRetrier struct {
	page     browser.Page
	banner   string
	ceiling  int
	interval time.Duration
}

// resolve is called right after target was clicked once. It returns Resolved as
// soon as the banner is gone and Exhausted once ceiling retry clicks were spent
// with the banner still up. Only browser or context failures are returned as errors.
func (r *bannerRetrier) resolve(ctx context.Context, target string, onRetry func()) (*domain.SubmissionAttempt, error) {
	attempt := &domain.SubmissionAttempt{Selector: target}
	for {
		visible, err := r.page.IsVisible(ctx, r.banner)
		if err != nil {
			return attempt, err
		}
		if !visible {
			attempt.Outcome = domain.AttemptResolved
			return attempt, nil
		}
		if attempt.Retries >= r.ceiling {
			log.Warnf("⚠️ Error banner still visible after %d retries of %s, proceeding with caution", attempt.Retries, target)
			attempt.Outcome = domain.AttemptExhausted
			return attempt, nil
		}

		if onRetry != nil {
			onRetry()
		}
		log.Debugf("Error banner visible, clicking %s again", target)
		if err := r.page.Click(ctx, target); err != nil {
			return attempt, err
		}
		if err := sleep(ctx, r.interval); err != nil {
			return attempt, err
		}
		attempt.Retries++
	}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
