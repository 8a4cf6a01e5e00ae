package audit

import (
	"sync"

	"txdb/internal/logger"
	"txdb/pkg/domain"
)

// Recorder 录制器，录制期间收集新入库的事务并分发给观察者
type Recorder struct {
	mu        sync.Mutex
	recording bool
	recorded  []domain.RecordedTransaction
	events    chan domain.RecordedTransaction
	log       logger.Logger
}

// New 创建录制器，events 可为 nil
func New(events chan domain.RecordedTransaction, l logger.Logger) *Recorder {
	if l == nil {
		l = logger.NewNop()
	}
	return &Recorder{
		events: events,
		log:    l,
	}
}

// Start 开始录制并清空上一次的结果
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = true
	r.recorded = nil
}

// Stop 停止录制，返回本次录制的全部事务
func (r *Recorder) Stop() []domain.RecordedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	out := r.recorded
	r.recorded = nil
	return out
}

// IsRecording 是否正在录制
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// AddRecorded 追加录制项，未录制时忽略
func (r *Recorder) AddRecorded(items []domain.RecordedTransaction) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		r.log.Debug("[Recorder] 未在录制，跳过", "count", len(items))
		return
	}
	r.recorded = append(r.recorded, items...)
	r.mu.Unlock()

	for _, it := range items {
		r.dispatch(it)
	}
}

// Recorded 返回当前已录制事务的副本
func (r *Recorder) Recorded() []domain.RecordedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RecordedTransaction(nil), r.recorded...)
}

// dispatch 分发到观察通道，通道满时丢弃
func (r *Recorder) dispatch(item domain.RecordedTransaction) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- item:
	default:
		r.log.Warn("[Recorder] 分发通道已满，丢弃事件", "target", item.Target, "id", item.TransactionID)
	}
}
