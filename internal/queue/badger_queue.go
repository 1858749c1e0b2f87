package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/corpus/internal/models"
)

// MessageTypeParseJob identifies parse job messages in the queue
const MessageTypeParseJob = "parse_job"

// Message is the queue payload. Jobs travel by ID; the worker re-reads
// the job row so the queue never carries stale state.
type Message struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
}

// queueMessage is the internal envelope stored in Badger
type queueMessage struct {
	ID           string    `json:"id"`
	Body         Message   `json:"body"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	VisibleAt    time.Time `json:"visible_at"`
	ReceiveCount int       `json:"receive_count"`
}

// BadgerQueue implements a persistent queue with visibility timeouts on
// BadgerDB. Message data lives at queue:{name}:msg:{id}; a visibility
// index at queue:{name}:index:{20-digit-ts}:{id} keeps ready messages
// scannable in timestamp order.
type BadgerQueue struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
}

// NewBadgerQueue creates a new Badger-backed queue
func NewBadgerQueue(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int) (*BadgerQueue, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &BadgerQueue{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// Enqueue adds a message to the queue, immediately visible
func (q *BadgerQueue) Enqueue(ctx context.Context, msg Message) error {
	qMsg := queueMessage{
		ID:         uuid.New().String(),
		Body:       msg,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now(),
	}

	data, err := json.Marshal(qMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(q.msgKey(qMsg.ID), data); err != nil {
			return err
		}
		return txn.Set(q.indexKey(qMsg.VisibleAt, qMsg.ID), []byte{})
	})
}

// Receive pulls the next visible message. The returned delete function
// acknowledges the message; an unacknowledged message becomes visible
// again after the visibility timeout. Messages that exceed maxReceive
// deliveries are dropped to break poison pill loops.
func (q *BadgerQueue) Receive(ctx context.Context) (*Message, func() error, error) {
	var qMsg queueMessage
	var msgID string
	var oldIndexKey []byte

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", q.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		found := false

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			ts, id, err := q.parseIndexKey(key)
			if err != nil {
				continue
			}

			if ts.After(now) {
				// Index keys sort by timestamp; nothing past this point
				// is ready yet.
				break
			}

			msgKey := q.msgKey(id)
			itemMsg, err := txn.Get(msgKey)
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Orphaned index entry, clean it up
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			if err := itemMsg.Value(func(val []byte) error {
				return json.Unmarshal(val, &qMsg)
			}); err != nil {
				return err
			}

			if qMsg.ReceiveCount >= q.maxReceive {
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(msgKey); err != nil {
					return err
				}
				continue
			}

			found = true
			msgID = id
			oldIndexKey = key
			break
		}

		if !found {
			return models.ErrNoMessage
		}

		qMsg.ReceiveCount++
		qMsg.VisibleAt = time.Now().Add(q.visibilityTimeout)

		newData, err := json.Marshal(qMsg)
		if err != nil {
			return err
		}
		if err := txn.Set(q.msgKey(msgID), newData); err != nil {
			return err
		}

		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(q.indexKey(qMsg.VisibleAt, msgID), []byte{})
	})

	if err != nil {
		return nil, nil, err
	}

	deleteFn := func() error {
		return q.db.Update(func(txn *badger.Txn) error {
			msgKey := q.msgKey(msgID)
			item, err := txn.Get(msgKey)
			if err != nil {
				if err == badger.ErrKeyNotFound {
					return nil // Already deleted
				}
				return err
			}

			var current queueMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}

			if err := txn.Delete(q.indexKey(current.VisibleAt, msgID)); err != nil {
				if err != badger.ErrKeyNotFound {
					return err
				}
			}
			return txn.Delete(msgKey)
		})
	}

	return &qMsg.Body, deleteFn, nil
}

// Extend pushes out the visibility timeout for an in-flight message
func (q *BadgerQueue) Extend(ctx context.Context, messageID string, duration time.Duration) error {
	return q.db.Update(func(txn *badger.Txn) error {
		msgKey := q.msgKey(messageID)
		item, err := txn.Get(msgKey)
		if err != nil {
			return err
		}

		var qMsg queueMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &qMsg)
		}); err != nil {
			return err
		}

		oldVisibleAt := qMsg.VisibleAt
		qMsg.VisibleAt = time.Now().Add(duration)

		newData, err := json.Marshal(qMsg)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey, newData); err != nil {
			return err
		}

		if err := txn.Delete(q.indexKey(oldVisibleAt, messageID)); err != nil {
			if err != badger.ErrKeyNotFound {
				return err
			}
		}
		return txn.Set(q.indexKey(qMsg.VisibleAt, messageID), []byte{})
	})
}

// Close is a no-op; the database connection is managed externally
func (q *BadgerQueue) Close() error {
	return nil
}

func (q *BadgerQueue) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", q.queueName, id))
}

func (q *BadgerQueue) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so lexicographic order matches numeric order
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", q.queueName, visibleAt.UnixNano(), id))
}

func (q *BadgerQueue) parseIndexKey(key []byte) (time.Time, string, error) {
	prefixStr := fmt.Sprintf("queue:%s:index:", q.queueName)
	if len(key) <= len(prefixStr) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefixStr):])
	if len(suffix) < 21 { // 20 digits + colon
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	tsStr := suffix[:20]
	id := suffix[21:]

	var ts int64
	if _, err := fmt.Sscanf(tsStr, "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), id, nil
}
