package exam

import (
	"sync"

	"nexlearn-exam-client/internal/domain"
)

// Results holds the most recent scored submission verbatim. It is written
// once per submission cycle and cleared only by an explicit reset.
type Results struct {
	mu     sync.RWMutex
	result *domain.ExamResult
}

func NewResults() *Results {
	return &Results{}
}

func (r *Results) Set(result domain.ExamResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = &result
}

func (r *Results) Get() (domain.ExamResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.result == nil {
		return domain.ExamResult{}, false
	}
	return *r.result, true
}

func (r *Results) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = nil
}
