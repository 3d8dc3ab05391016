package vision

import (
	"sync"
	"testing"
	"time"
)

// TestCache_SetAndGet は検出バッチの設定と取得をテストする
func TestCache_SetAndGet(t *testing.T) {
	cache := NewCache(time.Second)

	detections := []Detection{
		{Label: "skull", CX: 0.5, CY: 0.5, Radius: 0.1, Confidence: 0.9},
		{Label: "gear", CX: 0.2, CY: 0.8, Radius: 0.05, Confidence: 0.7},
	}
	cache.Set(detections)

	snapshot := cache.Get()
	if len(snapshot.Detections) != 2 {
		t.Fatalf("検出数が異なります: got %d, want 2", len(snapshot.Detections))
	}
	if snapshot.Stale {
		t.Error("設定直後のスナップショットがstaleになっています")
	}
	if snapshot.Detections[0].Label != "skull" {
		t.Errorf("ラベルが異なります: got %s, want skull", snapshot.Detections[0].Label)
	}
}

// TestCache_EmptyIsStale は未設定のキャッシュがstaleであることをテストする
func TestCache_EmptyIsStale(t *testing.T) {
	cache := NewCache(time.Second)

	snapshot := cache.Get()
	if !snapshot.Stale {
		t.Error("未設定のスナップショットがstaleになっていません")
	}
	if len(snapshot.Detections) != 0 {
		t.Errorf("未設定のスナップショットに検出が含まれています: %d", len(snapshot.Detections))
	}
}

// TestCache_StaleAfterAge は経過時間によるstale判定をテストする
func TestCache_StaleAfterAge(t *testing.T) {
	cache := NewCache(50 * time.Millisecond)

	cache.Set([]Detection{{Label: "nut"}})
	if cache.Get().Stale {
		t.Error("設定直後にstaleになっています")
	}

	time.Sleep(100 * time.Millisecond)
	if !cache.Get().Stale {
		t.Error("閾値経過後もstaleになっていません")
	}

	// Republish で鮮度が回復する
	cache.Republish()
	if cache.Get().Stale {
		t.Error("Republish後もstaleのままです")
	}
}

// TestCache_MarkStale は強制stale化をテストする
func TestCache_MarkStale(t *testing.T) {
	cache := NewCache(time.Hour)

	cache.Set([]Detection{{Label: "heart"}})
	cache.MarkStale()

	snapshot := cache.Get()
	if !snapshot.Stale {
		t.Error("MarkStale後もstaleになっていません")
	}

	// 検出内容自体は保持される
	if len(snapshot.Detections) != 1 {
		t.Errorf("MarkStaleで検出が消えています: got %d, want 1", len(snapshot.Detections))
	}

	// 次のSetで解除される
	cache.Set([]Detection{{Label: "hotdog"}})
	if cache.Get().Stale {
		t.Error("Set後もstaleのままです")
	}
}

// TestCache_ReplaceSemantics はバッチ置き換えのセマンティクスをテストする
// 前回のバッチとマージされないこと
func TestCache_ReplaceSemantics(t *testing.T) {
	cache := NewCache(time.Hour)

	cache.Set([]Detection{{Label: "skull"}, {Label: "gear"}})
	cache.Set([]Detection{{Label: "nut"}})

	snapshot := cache.Get()
	if len(snapshot.Detections) != 1 {
		t.Fatalf("バッチがマージされています: got %d, want 1", len(snapshot.Detections))
	}
	if snapshot.Detections[0].Label != "nut" {
		t.Errorf("ラベルが異なります: got %s, want nut", snapshot.Detections[0].Label)
	}
}

// TestCache_CopyIsolation は取得したスナップショットの独立性をテストする
func TestCache_CopyIsolation(t *testing.T) {
	cache := NewCache(time.Hour)

	source := []Detection{{Label: "gear", CX: 0.1}}
	cache.Set(source)

	// 呼び出し元のスライスを書き換えてもキャッシュに影響しない
	source[0].Label = "mutated"
	if got := cache.Get().Detections[0].Label; got != "gear" {
		t.Errorf("入力スライスの変更がキャッシュに波及しています: got %s", got)
	}

	// 取得したスナップショットを書き換えても次の取得に影響しない
	snapshot := cache.Get()
	snapshot.Detections[0].Label = "mutated"
	if got := cache.Get().Detections[0].Label; got != "gear" {
		t.Errorf("スナップショットの変更がキャッシュに波及しています: got %s", got)
	}
}

// TestCache_ConcurrentAccess は並行アクセス時の原子性をテストする
// 読み手が部分的に更新されたバッチを観測しないこと
func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Hour)

	// バッチ内の全ラベルが揃っているかで原子性を確認する
	batchA := []Detection{{Label: "a1"}, {Label: "a2"}}
	batchB := []Detection{{Label: "b1"}, {Label: "b2"}}

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				cache.Set(batchA)
				cache.Set(batchB)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		snapshot := cache.Get()
		if len(snapshot.Detections) != 2 {
			t.Errorf("バッチの長さが異なります: got %d, want 2", len(snapshot.Detections))
			break
		}

		first := snapshot.Detections[0].Label
		second := snapshot.Detections[1].Label
		if (first == "a1" && second != "a2") || (first == "b1" && second != "b2") {
			t.Errorf("部分的に更新されたバッチを観測しました: %s, %s", first, second)
			break
		}
	}

	close(done)
	wg.Wait()
}

// TestCache_Labels はラベル一覧の取得をテストする
func TestCache_Labels(t *testing.T) {
	cache := NewCache(time.Hour)

	cache.Set([]Detection{
		{Label: "skull"},
		{Label: "gear"},
		{Label: "skull"}, // 重複
	})

	labels := cache.Labels()
	if len(labels) != 2 {
		t.Fatalf("重複が除去されていません: got %v", labels)
	}
}
