package audit_test

import (
	"testing"
	"time"

	"txdb/internal/audit"
	"txdb/internal/logger"
	"txdb/pkg/domain"
)

func TestNew_NilLogger(t *testing.T) {
	if audit.New(nil, nil) == nil {
		t.Error("New() returned nil")
	}
}

func TestAddRecorded_NotRecording(t *testing.T) {
	events := make(chan domain.RecordedTransaction, 10)
	rec := audit.New(events, logger.NewNop())

	rec.AddRecorded([]domain.RecordedTransaction{{Target: "t", TransactionID: 1}})

	select {
	case <-events:
		t.Error("未录制时不应分发事件")
	case <-time.After(10 * time.Millisecond):
	}
	if len(rec.Recorded()) != 0 {
		t.Error("未录制时不应保存事件")
	}
}

func TestRecording(t *testing.T) {
	events := make(chan domain.RecordedTransaction, 10)
	rec := audit.New(events, logger.NewNop())

	rec.Start()
	if !rec.IsRecording() {
		t.Fatal("Start 后应处于录制状态")
	}
	rec.AddRecorded([]domain.RecordedTransaction{
		{Target: "acme", TransactionID: 1},
		{Target: "acme", TransactionID: 2},
	})

	select {
	case got := <-events:
		if got.TransactionID != 1 {
			t.Errorf("预期先分发 id 1，实际为 %d", got.TransactionID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("未收到分发事件")
	}

	out := rec.Stop()
	if len(out) != 2 {
		t.Fatalf("预期录制 2 条，实际为 %d", len(out))
	}
	if rec.IsRecording() {
		t.Error("Stop 后不应处于录制状态")
	}
}

func TestDispatch_ChannelFull(t *testing.T) {
	events := make(chan domain.RecordedTransaction, 1)
	rec := audit.New(events, logger.NewNop())
	rec.Start()

	rec.AddRecorded([]domain.RecordedTransaction{{TransactionID: 1}, {TransactionID: 2}, {TransactionID: 3}})

	if len(events) != 1 {
		t.Errorf("通道容量为 1，实际缓冲 %d", len(events))
	}
	if len(rec.Recorded()) != 3 {
		t.Error("通道满不影响录制结果")
	}
}
