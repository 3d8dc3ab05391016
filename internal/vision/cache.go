package vision

import (
	"sync"
	"time"
)

// Cache は最新の検出スナップショットをスレッドセーフに保持する
//
// 書き込みはスナップショット全体の原子的な差し替えで行う。
// 読み手は常にコピーを受け取るため、部分的に更新されたバッチを
// 観測することはない。
type Cache struct {
	mu         sync.RWMutex
	detections []Detection
	capturedAt time.Time
	paused     bool

	staleAfter time.Duration
}

// NewCache は新しいCacheを作成する
func NewCache(staleAfter time.Duration) *Cache {
	return &Cache{
		staleAfter: staleAfter,
	}
}

// Set は検出バッチを差し替える
// 前回のバッチとマージはしない（置き換えのみ）
func (c *Cache) Set(detections []Detection) {
	// 呼び出し元のスライスと共有しないようコピーする
	batch := make([]Detection, len(detections))
	copy(batch, detections)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detections = batch
	c.capturedAt = time.Now()
	c.paused = false
}

// Republish は検出内容を変えずに取得時刻だけ更新する
// 検出を実行しないフレームでも鮮度を維持するために使う
func (c *Cache) Republish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capturedAt = time.Now()
}

// MarkStale はスナップショットを強制的に stale 扱いにする
// カメラが一時停止された場合に使う
func (c *Cache) MarkStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Get は現在のスナップショットのコピーを返す
func (c *Cache) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	detections := make([]Detection, len(c.detections))
	copy(detections, c.detections)

	stale := c.paused
	if !stale && c.staleAfter > 0 {
		stale = c.capturedAt.IsZero() || time.Since(c.capturedAt) > c.staleAfter
	}

	return Snapshot{
		Detections: detections,
		CapturedAt: c.capturedAt,
		Stale:      stale,
	}
}

// Labels は現在の検出に含まれるラベルの一覧を重複なしで返す
func (c *Cache) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var labels []string
	for _, d := range c.detections {
		if !seen[d.Label] {
			seen[d.Label] = true
			labels = append(labels, d.Label)
		}
	}
	return labels
}
