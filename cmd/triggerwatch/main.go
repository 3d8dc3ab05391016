// triggerwatch はトリガーレコードの更新を監視する独立コンシューマ
//
// アーム側のホストなど、本体プロセスの外からピック要求を観測するための
// ツール。レコードファイルの書き込みを検知するたびに内容を出力する。
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"scrapple/internal/robot"
)

func main() {
	path := flag.String("path", "robot_trigger.txt", "監視するトリガーレコードのパス")
	flag.Parse()

	absPath, err := filepath.Abs(*path)
	if err != nil {
		log.Fatalf("パスの解決に失敗しました: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("ウォッチャーの作成に失敗しました: %v", err)
	}
	defer watcher.Close()

	// レコードは毎回上書きされるため、ファイルではなくディレクトリを監視する
	// （エディタ等のrename書き込みでも検知できる）
	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		log.Fatalf("監視の開始に失敗しました: %v", err)
	}

	log.Printf("[TRIGGERWATCH] 監視を開始しました: %s", absPath)

	// 既存のレコードがあれば先に出力する
	if _, err := os.Stat(absPath); err == nil {
		report(absPath)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != absPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				report(absPath)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[TRIGGERWATCH] 監視エラー: %v", err)
		}
	}
}

// report はレコードの内容を出力する
func report(path string) {
	record, err := robot.ReadTriggerRecord(path)
	if err != nil {
		log.Printf("[TRIGGERWATCH] レコードの読み取りに失敗: %v", err)
		return
	}

	log.Printf("[TRIGGERWATCH] ピック要求: target=%s timestamp=%s",
		record.Target, record.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
}
