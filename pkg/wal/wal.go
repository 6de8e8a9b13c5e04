package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀) - 適用於大多數檔案
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於私鑰、機密檔
	FileModePrivate fs.FileMode = 0600
)

// ErrClosed WAL 已關閉
var ErrClosed = errors.New("wal: closed")

// WAL 以 JSON Lines 格式附加寫入的日誌檔
// 每筆記錄一行，單次 write 寫入後 fsync；崩潰時最多留下最後一行不完整
type WAL struct {
	file   *os.File
	mu     sync.Mutex
	closed bool
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write 寫入一筆資料並刷入硬碟
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wal: encode record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("wal: write record: %w", err)
	}
	return w.file.Sync()
}

// Sync 強制刷入硬碟
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// ReadAll 依序讀取所有記錄
// callback 收到單行原始 JSON；最後一行若不完整 (寫到一半崩潰) 會被截掉，
// 中間出現損毀的行則回傳錯誤
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(w.file)
	var (
		offset  int64 // 最後一筆完整記錄的結尾
		pending error // 尚未確定是否為檔尾的損毀行
	)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if pending != nil {
				return pending
			}
			complete := line[len(line)-1] == '\n'
			raw := bytes.TrimSpace(line)
			if !complete || !json.Valid(raw) {
				pending = fmt.Errorf("wal: corrupt record at offset %d", offset)
			} else {
				if len(raw) > 0 {
					if err := callback(raw); err != nil {
						return err
					}
				}
				offset += int64(len(line))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if pending != nil {
		// 截掉不完整的檔尾，之後的附加寫入才不會接在殘缺的行後面
		if err := w.file.Truncate(offset); err != nil {
			return fmt.Errorf("wal: truncate torn tail: %w", err)
		}
	}
	return nil
}
