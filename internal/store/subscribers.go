package store

import (
	"context"
	"fmt"

	"github.com/valshi/whalewatch/internal/model"
)

// EnsureSubscriber creates a subscriber row with the given defaults if one
// does not exist yet. An existing row is left untouched.
func (s *Store) EnsureSubscriber(ctx context.Context, userID int64, defaultThresholdUSD float64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO subs (user_id, alerts_on, threshold_usd, topic, tz)
		 VALUES ($1, FALSE, $2, $3, 'UTC')
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, defaultThresholdUSD, model.TopicAll)
	if err != nil {
		return fmt.Errorf("ensure subscriber %d: %w", userID, err)
	}
	return nil
}

// GetSubscriber returns one subscriber's preferences, creating the row
// with defaults first if needed.
func (s *Store) GetSubscriber(ctx context.Context, userID int64, defaultThresholdUSD float64) (model.Subscriber, error) {
	if err := s.EnsureSubscriber(ctx, userID, defaultThresholdUSD); err != nil {
		return model.Subscriber{}, err
	}
	var sub model.Subscriber
	err := s.db.QueryRow(ctx,
		`SELECT user_id, alerts_on, threshold_usd, topic, tz FROM subs WHERE user_id = $1`,
		userID).Scan(&sub.UserID, &sub.AlertsOn, &sub.ThresholdUSD, &sub.Topic, &sub.Timezone)
	if err != nil {
		return model.Subscriber{}, fmt.Errorf("query subscriber %d: %w", userID, err)
	}
	return sub, nil
}

// Subscribers returns all subscriber preference rows.
func (s *Store) Subscribers(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := s.db.Query(ctx,
		`SELECT user_id, alerts_on, threshold_usd, topic, tz FROM subs`)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		var sub model.Subscriber
		if err := rows.Scan(&sub.UserID, &sub.AlertsOn, &sub.ThresholdUSD, &sub.Topic, &sub.Timezone); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SetAlertsOn toggles a subscriber's alert delivery.
func (s *Store) SetAlertsOn(ctx context.Context, userID int64, on bool, defaultThresholdUSD float64) error {
	if err := s.EnsureSubscriber(ctx, userID, defaultThresholdUSD); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`UPDATE subs SET alerts_on = $2 WHERE user_id = $1`, userID, on)
	if err != nil {
		return fmt.Errorf("set alerts_on for %d: %w", userID, err)
	}
	return nil
}

// SetThreshold updates a subscriber's personal notional threshold.
func (s *Store) SetThreshold(ctx context.Context, userID int64, thresholdUSD, defaultThresholdUSD float64) error {
	if err := s.EnsureSubscriber(ctx, userID, defaultThresholdUSD); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`UPDATE subs SET threshold_usd = $2 WHERE user_id = $1`, userID, thresholdUSD)
	if err != nil {
		return fmt.Errorf("set threshold for %d: %w", userID, err)
	}
	return nil
}

// SetTopic updates a subscriber's topic filter.
func (s *Store) SetTopic(ctx context.Context, userID int64, topic string, defaultThresholdUSD float64) error {
	if err := s.EnsureSubscriber(ctx, userID, defaultThresholdUSD); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`UPDATE subs SET topic = $2 WHERE user_id = $1`, userID, topic)
	if err != nil {
		return fmt.Errorf("set topic for %d: %w", userID, err)
	}
	return nil
}

// SetTimezone updates a subscriber's display timezone.
func (s *Store) SetTimezone(ctx context.Context, userID int64, tz string, defaultThresholdUSD float64) error {
	if err := s.EnsureSubscriber(ctx, userID, defaultThresholdUSD); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx,
		`UPDATE subs SET tz = $2 WHERE user_id = $1`, userID, tz)
	if err != nil {
		return fmt.Errorf("set timezone for %d: %w", userID, err)
	}
	return nil
}
