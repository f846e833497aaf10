package activitypub

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/deemkeen/fedipage/domain"
)

// backoffMinutes is the retry schedule for failed deliveries; after
// maxDeliveryAttempts the item is dropped.
var backoffMinutes = []int{1, 5, 15, 60, 240, 1440}

const maxDeliveryAttempts = 10

// StartDeliveryWorker runs the background loop that drains the delivery
// queue until the context is cancelled
func (s *Service) StartDeliveryWorker(ctx context.Context) {
	log.Println("DeliveryWorker: Starting...")

	ticker := time.NewTicker(10 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("DeliveryWorker: Stopping")
				return
			case <-ticker.C:
				s.processDeliveryQueue(ctx)
			}
		}
	}()
}

func (s *Service) processDeliveryQueue(ctx context.Context) {
	err, items := s.db.ReadPendingDeliveries(50)
	if err != nil {
		log.Printf("DeliveryWorker: Failed to read queue: %v", err)
		return
	}
	if len(*items) == 0 {
		return
	}

	log.Printf("DeliveryWorker: Processing %d pending deliveries", len(*items))

	for _, item := range *items {
		if err := s.deliverActivity(ctx, &item); err != nil {
			item.Attempts++
			if item.Attempts >= maxDeliveryAttempts {
				log.Printf("DeliveryWorker: Giving up on delivery to %s after %d attempts", item.InboxURI, item.Attempts)
				s.db.DeleteDelivery(item.Id)
				continue
			}

			backoff := backoffMinutes[min(item.Attempts-1, len(backoffMinutes)-1)]
			item.NextRetryAt = time.Now().Add(time.Duration(backoff) * time.Minute)
			log.Printf("DeliveryWorker: Delivery to %s failed (attempt %d), retry in %dm: %v",
				item.InboxURI, item.Attempts, backoff, err)
			s.db.UpdateDeliveryAttempt(item.Id, item.Attempts, item.NextRetryAt)
		} else {
			log.Printf("DeliveryWorker: Delivered to %s", item.InboxURI)
			s.db.DeleteDelivery(item.Id)
		}
	}
}

// deliverActivity signs and posts one queued activity to its inbox
func (s *Service) deliverActivity(ctx context.Context, item *domain.DeliveryQueueItem) error {
	err, main := s.db.ReadMainActor()
	if err != nil {
		return fmt.Errorf("no main actor configured: %w", err)
	}

	privateKey, err := s.rsaPrivateKey(main.Username)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}

	body := []byte(item.ActivityJSON)
	req, err := http.NewRequestWithContext(ctx, "POST", item.InboxURI, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)

	keyID := s.ActorURI(main.Username) + "#main-key"
	if err := SignRequest(req, privateKey, keyID, body); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote server returned status: %d", resp.StatusCode)
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
