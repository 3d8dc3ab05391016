package robot

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TriggerRecord は直近のピック要求を表す永続レコード
// ブリッジ外のプロセスがポーリングで読み取れるよう、単純な
// KEY=VALUE 形式のテキストファイルとして書き込む
type TriggerRecord struct {
	Target    string
	Timestamp time.Time
}

// WriteTriggerRecord はトリガーレコードを書き込む（毎回上書き）
func WriteTriggerRecord(path string, record TriggerRecord) error {
	content := fmt.Sprintf(
		"TARGET=%s\nTIMESTAMP=%.3f\n",
		record.Target,
		float64(record.Timestamp.UnixMilli())/1000.0,
	)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("トリガーレコードの書き込みに失敗: %w", err)
	}

	return nil
}

// ReadTriggerRecord はトリガーレコードを読み取る
func ReadTriggerRecord(path string) (TriggerRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TriggerRecord{}, fmt.Errorf("トリガーレコードの読み取りに失敗: %w", err)
	}

	var record TriggerRecord
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		switch key {
		case "TARGET":
			record.Target = value
		case "TIMESTAMP":
			seconds, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return TriggerRecord{}, fmt.Errorf("タイムスタンプの解析に失敗: %w", err)
			}
			record.Timestamp = time.UnixMilli(int64(seconds * 1000))
		}
	}

	if record.Target == "" {
		return TriggerRecord{}, fmt.Errorf("トリガーレコードにTARGETがありません: %s", path)
	}

	return record, nil
}
