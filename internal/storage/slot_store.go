// internal/storage/slot_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrSlotNotFound 表示存储槽尚不存在（首次启动属正常情况）
var ErrSlotNotFound = errors.New("存储槽不存在")

// SlotStore 提供按槽位独立持久化的JSON文件存储
//
// 每个槽是一个独立的JSON文件（settings、books、stats……），
// 互不影响：某一槽损坏时其余槽仍可正常加载。
type SlotStore struct {
	BaseDir string

	// 文件级别锁 path -> *sync.RWMutex
	fileLocks sync.Map
}

// NewSlotStore 创建槽位存储
func NewSlotStore(baseDir string) (*SlotStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &SlotStore{BaseDir: baseDir}, nil
}

func (s *SlotStore) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := s.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (s *SlotStore) slotPath(slot string) string {
	return filepath.Join(s.BaseDir, slot+".json")
}

// SaveSlot 序列化并原子性写入一个存储槽
func (s *SlotStore) SaveSlot(slot string, data interface{}) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化存储槽失败 %s: %w", slot, err)
	}

	fullPath := s.slotPath(slot)
	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	// 原子性文件写入：先写临时文件再重命名
	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("替换存储槽文件失败: %w", err)
	}
	return nil
}

// LoadSlot 读取并解析一个存储槽
//
// 槽文件不存在时返回 ErrSlotNotFound，调用方应使用默认值；
// 文件存在但解析失败时返回解析错误，调用方同样回退默认值，
// 但不影响其他槽的加载。
func (s *SlotStore) LoadSlot(slot string, v interface{}) error {
	fullPath := s.slotPath(slot)
	lock := s.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("读取存储槽失败 %s: %w", slot, err)
	}

	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("解析存储槽失败 %s: %w", slot, err)
	}
	return nil
}

// SlotExists 检查存储槽是否存在
func (s *SlotStore) SlotExists(slot string) bool {
	_, err := os.Stat(s.slotPath(slot))
	return err == nil
}

// DeleteSlot 删除一个存储槽
func (s *SlotStore) DeleteSlot(slot string) error {
	fullPath := s.slotPath(slot)
	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除存储槽失败 %s: %w", slot, err)
	}
	return nil
}

// SaveTextFile 在存储目录下保存一个普通文本文件（导出用）
func (s *SlotStore) SaveTextFile(dirPath, filename string, content []byte) (string, error) {
	fullDirPath := filepath.Join(s.BaseDir, dirPath)
	fullPath := filepath.Join(fullDirPath, filename)

	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(fullDirPath, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return "", fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("保存文件失败: %w", err)
	}
	return fullPath, nil
}
