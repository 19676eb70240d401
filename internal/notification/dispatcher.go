package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/snapwatch/snapwatch/internal/conf"
	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/errors"
	"github.com/snapwatch/snapwatch/internal/logging"
	"github.com/snapwatch/snapwatch/internal/observability"
)

// Provider kind labels used in logs and metrics.
const (
	kindTelegram = "telegram"
	kindWebhook  = "webhook"
)

// Dispatcher fans a matched event out to the channels subscribed to each
// matched profile. Every channel send runs in its own goroutine so one slow
// or failing channel never delays the others, and a send failure is logged
// and counted but never propagated back to event processing.
type Dispatcher struct {
	ds          datastore.Interface
	metrics     *observability.Metrics
	log         *slog.Logger
	nodeName    string
	enabled     bool
	maxRetries  int
	retryDelay  time.Duration
	sendTimeout time.Duration
	wg          sync.WaitGroup

	// Provider construction is indirected for tests.
	telegramProvider func(*datastore.TelegramConfig) Provider
	webhookProvider  func(*datastore.WebhookConfig) Provider
}

// NewDispatcher creates a dispatcher wired to the datastore's channel
// subscriptions. Metrics may be nil.
func NewDispatcher(ds datastore.Interface, settings *conf.Settings, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		ds:          ds,
		metrics:     metrics,
		log:         logging.ForService("notification"),
		nodeName:    settings.Main.Name,
		enabled:     settings.Notification.Push.Enabled,
		maxRetries:  settings.Notification.Push.MaxRetries,
		retryDelay:  settings.Notification.Push.RetryDelay,
		sendTimeout: settings.Notification.Push.SendTimeout,
		telegramProvider: func(config *datastore.TelegramConfig) Provider {
			return NewTelegramProvider(config)
		},
		webhookProvider: func(config *datastore.WebhookConfig) Provider {
			return NewWebhookProvider(config)
		},
	}
}

// Dispatch sends a notification per (matched profile, subscribed channel)
// pair. It returns as soon as the sends are launched; the detached context
// keeps in-flight sends alive after the triggering request completes.
func (d *Dispatcher) Dispatch(ctx context.Context, event datastore.DetectionEvent, profiles []datastore.DetectionProfile) {
	if !d.enabled {
		return
	}
	ctx = context.WithoutCancel(ctx)

	for i := range profiles {
		profile := &profiles[i]
		message := d.buildMessage(&event, profile)

		telegrams, err := d.ds.TelegramSubscriptions(profile.ID)
		if err != nil {
			d.log.Error("loading telegram subscriptions failed",
				"profile", profile.Slug, "error", err)
		}
		webhooks, err := d.ds.WebhookSubscriptions(profile.ID)
		if err != nil {
			d.log.Error("loading webhook subscriptions failed",
				"profile", profile.Slug, "error", err)
		}

		for j := range telegrams {
			d.launch(ctx, kindTelegram, d.telegramProvider(&telegrams[j]), message)
		}
		for j := range webhooks {
			d.launch(ctx, kindWebhook, d.webhookProvider(&webhooks[j]), message)
		}
	}
}

// Wait blocks until all in-flight sends have finished. Used by shutdown and
// tests; normal dispatch never waits.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) launch(ctx context.Context, kind string, provider Provider, message *Message) {
	if !provider.IsEnabled() {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(ctx, kind, provider, message)
	}()
}

// send runs one channel delivery with bounded retry. The backoff delay
// doubles per attempt; only errors the provider marks retryable are retried.
func (d *Dispatcher) send(ctx context.Context, kind string, provider Provider, message *Message) {
	delay := d.retryDelay
	for attempt := 1; ; attempt++ {
		err := d.attemptSend(ctx, provider, message)
		if err == nil {
			if d.metrics != nil {
				d.metrics.NotificationsSent.WithLabelValues(kind).Inc()
			}
			d.log.Debug("notification sent",
				"provider", provider.GetName(), "kind", kind,
				"profile", message.ProfileName, "attempts", attempt)
			return
		}

		retryable := false
		var perr *providerError
		if errors.As(err, &perr) {
			retryable = perr.Retryable
		}
		if !retryable || attempt > d.maxRetries {
			if d.metrics != nil {
				d.metrics.NotificationsFailed.WithLabelValues(kind).Inc()
			}
			failure := errors.New(err).
				Component("notification").
				Category(errors.CategoryNotification).
				Context("provider", provider.GetName()).
				Context("kind", kind).
				Build()
			d.log.Error("notification send failed",
				"profile", message.ProfileName, "attempts", attempt, "error", failure)
			return
		}

		if d.metrics != nil {
			d.metrics.NotificationRetries.WithLabelValues(kind).Inc()
		}
		time.Sleep(delay)
		delay *= 2
	}
}

// attemptSend runs a single delivery attempt. The per-attempt timeout context
// is released as soon as the attempt finishes, not at the end of the retry
// loop.
func (d *Dispatcher) attemptSend(ctx context.Context, provider Provider, message *Message) error {
	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}
	return provider.Send(ctx, message)
}

// buildMessage renders the notification for one matched profile, summarizing
// the detections that satisfied the profile's class and confidence rules.
func (d *Dispatcher) buildMessage(event *datastore.DetectionEvent, profile *datastore.DetectionProfile) *Message {
	message := NewMessage(event.ID, event.ImageFileName, profile.Name)

	title := fmt.Sprintf("%s matched", profile.Name)
	if d.nodeName != "" {
		title = fmt.Sprintf("%s: %s matched", d.nodeName, profile.Name)
	}
	message.Title = title

	summary := predictionSummary(event.Predictions, profile)
	if summary == "" {
		message.Body = fmt.Sprintf("Detection event %s matched profile %s", event.ImageFileName, profile.Name)
	} else {
		message.Body = fmt.Sprintf("Detection event %s matched profile %s: %s",
			event.ImageFileName, profile.Name, summary)
	}
	return message
}

// predictionSummary formats the qualifying detections as "car 87%, person 64%".
func predictionSummary(predictions []datastore.AiPrediction, profile *datastore.DetectionProfile) string {
	classes := map[string]struct{}{}
	if len(profile.ObjectClasses) > 0 {
		var list []string
		if err := json.Unmarshal(profile.ObjectClasses, &list); err == nil {
			for _, class := range list {
				classes[class] = struct{}{}
			}
		}
	}

	var parts []string
	for i := range predictions {
		p := &predictions[i]
		if _, ok := classes[p.ObjectClass]; !ok {
			continue
		}
		if p.Confidence < profile.MinConfidence {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", p.ObjectClass, p.Confidence*100))
	}
	return strings.Join(parts, ", ")
}
