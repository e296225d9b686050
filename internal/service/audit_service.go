package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/logger"
	"gopkg.in/natefinch/lumberjack.v2"
)

type AuditService struct {
	logChan chan *model.AuditLog
	file    *lumberjack.Logger
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}
	once    sync.Once
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, accountID string, limit int, from, to *time.Time) ([]*model.AuditLog, error)
}

// NewAuditService writes entries to a rotating audit.jsonl under logDir and,
// when repo is set, to the repository. An empty logDir keeps only the
// in-memory ring and the repository.
func NewAuditService(logDir string, repo AuditRepo) (*AuditService, error) {
	svc := &AuditService{
		logChan: make(chan *model.AuditLog, 1000),
		buffer:  newAuditBuffer(1000),
		repo:    repo,
		done:    make(chan struct{}),
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, err
		}
		svc.file = &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "audit.jsonl"),
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
		}
	}

	go svc.processLogs()
	return svc, nil
}

// Log queues an entry. It never blocks the request path; when the queue is
// full the entry only reaches the in-memory ring.
func (s *AuditService) Log(entry *model.AuditLog) {
	s.buffer.Add(entry)
	select {
	case s.logChan <- entry:
	default:
		logger.Warn("Audit queue full, entry kept in memory only", "id", entry.ID)
	}
}

func (s *AuditService) List(ctx context.Context, accountID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, accountID, limit, from, to)
		if err == nil {
			return records, nil
		}
		logger.Warn("Audit repository list failed, using memory ring", "error", err)
	}
	return s.buffer.List(accountID, limit, from, to), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	var enc *json.Encoder
	if s.file != nil {
		enc = json.NewEncoder(s.file)
	}
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				logger.Error("Failed to persist audit entry", "id", entry.ID, "error", err)
			}
		}
		if enc != nil {
			if err := enc.Encode(entry); err != nil {
				logger.Error("Failed to write audit entry", "id", entry.ID, "error", err)
			}
		}
	}
}

// Close drains queued entries and closes the file.
func (s *AuditService) Close() {
	s.once.Do(func() {
		close(s.logChan)
		<-s.done
		if s.file != nil {
			_ = s.file.Close()
		}
	})
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List walks the ring newest first.
func (b *auditBuffer) List(accountID string, limit int, from, to *time.Time) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		entry := b.records[(b.nextIndex+total-1-i)%total]
		if entry == nil {
			continue
		}
		if accountID != "" && entry.AccountID != accountID {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
