package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-fee-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-fee-ledger/internal/app/core/usecase"
)

// ErrSequencerStopped 核心迴圈已停止；視為儲存層不可用
var ErrSequencerStopped = fmt.Errorf("%w: sequencer stopped", domain.ErrStorageFailure)

// unitRequest 交易請求包裝channel，讓WithLock可以等待結果
type unitRequest struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	Result chan error // 讓 WithLock 等這個 channel
}

// Sequencer 單一寫入者 (LMAX 風格)：所有受保護的單位在同一個 goroutine 依序執行
// 因為完全序列化，accountIDs 只用於介面相容
type Sequencer struct {
	// 輸送帶 負責接收請求
	requests chan *unitRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	done        chan struct{}
	stopOnce    sync.Once
	stopped     chan struct{}
}

// NewSequencer 建立 Sequencer；需要呼叫 Start 才會開始處理
//
// 參數:
//
//	buffer: 輸送帶容量
func NewSequencer(buffer int) *Sequencer {
	if buffer <= 0 {
		buffer = 1000
	}
	return &Sequencer{
		requests: make(chan *unitRequest, buffer),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &unitRequest{
					Result: make(chan error, 1),
				}
			},
		},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start 啟動核心迴圈 (非同步)；ctx 結束或呼叫 Stop 時，剩下的請求處理完才停止
func (s *Sequencer) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop 停止核心迴圈並等待結束
func (s *Sequencer) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Sequencer) run(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case <-s.done:
			s.drain()
			return
		case req := <-s.requests:
			s.process(req)
		}
	}
}

func (s *Sequencer) drain() {
	for {
		select {
		case req := <-s.requests:
			s.process(req)
		default:
			return
		}
	}
}

// process 執行單一請求並回傳結果；呼叫端已放棄的請求不執行
func (s *Sequencer) process(req *unitRequest) {
	if err := req.ctx.Err(); err != nil {
		req.Result <- err
		return
	}
	req.Result <- req.fn(req.ctx)
}

// WithLock 把 fn 放上輸送帶並等待執行結果
//
// WithLock(等待) -> Channel -> Run Loop (核心) -> fn -> Result Channel -> WithLock(收到結果)
func (s *Sequencer) WithLock(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error {
	select {
	case <-s.stopped:
		return ErrSequencerStopped
	default:
	}

	req := s.requestPool.Get().(*unitRequest)
	req.ctx = ctx
	req.fn = fn
	// 清空 Channel (雖然理論上應該是空的，但保險起見)
	select {
	case <-req.Result:
	default:
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		s.release(req)
		return ctx.Err()
	case <-s.stopped:
		s.release(req)
		return ErrSequencerStopped
	}

	// 已經排入，fn 可能已經開始執行，必須等結果
	var err error
	select {
	case err = <-req.Result:
	case <-s.stopped:
		// 迴圈停止前會 drain，結果一定已經寫入
		select {
		case err = <-req.Result:
		default:
			err = ErrSequencerStopped
		}
	}
	s.release(req)
	return err
}

func (s *Sequencer) release(req *unitRequest) {
	req.ctx = nil
	req.fn = nil
	s.requestPool.Put(req)
}

var _ usecase.Guard = (*Sequencer)(nil)
