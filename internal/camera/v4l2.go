package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// V4L2Capturer はシェルコマンドを使ってV4L2デバイスから画像を取得する
type V4L2Capturer struct {
	devicePath string
	width      int
	height     int
	fps        int
}

// NewV4L2Capturer は新しいV4L2Capturerを作成する
func NewV4L2Capturer(devicePath string, width, height, fps int) *V4L2Capturer {
	return &V4L2Capturer{
		devicePath: devicePath,
		width:      width,
		height:     height,
		fps:        fps,
	}
}

// IsDeviceAvailable はV4L2デバイスが利用可能かチェックする
func (c *V4L2Capturer) IsDeviceAvailable(ctx context.Context) bool {
	// v4l2-ctlコマンドでデバイス情報を取得して確認
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", c.devicePath, "--info")
	err := cmd.Run()
	return err == nil
}

// StartStream は連続キャプチャ用のストリームを開始する
// コンテキストのキャンセルでffmpegプロセスごと停止する
func (c *V4L2Capturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) {
	// ffmpegを使って連続的にフレームをキャプチャ
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", c.width, c.height),
		"-r", strconv.Itoa(c.fps),
		"-i", c.devicePath,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		errorChan <- fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		errorChan <- fmt.Errorf("stderrパイプの作成に失敗: %w", err)
		return
	}

	if err := cmd.Start(); err != nil {
		errorChan <- fmt.Errorf("ffmpegの起動に失敗: %w", err)
		return
	}

	// stderrを読み捨てる（放置するとffmpegがブロックするため）
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := stderr.Read(buf); err != nil {
				break
			}
		}
	}()

	// JPEGフレームを読み取り
	go func() {
		defer func() {
			_ = cmd.Wait() // エラーは無視（コンテキストキャンセル時に発生するため）
		}()

		buffer := make([]byte, 1024*1024) // 1MBバッファ
		frameBuffer := bytes.Buffer{}

		for {
			select {
			case <-ctx.Done():
				return
			default:
				n, err := stdout.Read(buffer)
				if err != nil {
					if err.Error() != "EOF" {
						select {
						case errorChan <- fmt.Errorf("フレーム読み取りエラー: %w", err):
						case <-ctx.Done():
						}
					}
					return
				}

				frameBuffer.Write(buffer[:n])

				// 溜まったデータから完全なJPEGフレームを切り出して送信
				for _, frame := range ExtractJPEGFrames(&frameBuffer) {
					select {
					case frameChan <- frame:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
}

// ExtractJPEGFrames はバッファから完全なJPEGフレームを全て切り出す
// 不完全な末尾データはバッファに残す
func ExtractJPEGFrames(frameBuffer *bytes.Buffer) [][]byte {
	var frames [][]byte
	data := frameBuffer.Bytes()

	for {
		// JPEGの開始マーカー（FF D8）を探す
		startIdx := bytes.Index(data, []byte{0xFF, 0xD8})
		if startIdx == -1 {
			// 開始マーカーがない場合は破棄する
			// ただし末尾の 0xFF はマーカーの前半の可能性があるため残す
			keepTail := len(data) > 0 && data[len(data)-1] == 0xFF
			frameBuffer.Reset()
			if keepTail {
				frameBuffer.WriteByte(0xFF)
			}
			break
		}

		// JPEGの終了マーカー（FF D9）を探す
		endIdx := bytes.Index(data[startIdx+2:], []byte{0xFF, 0xD9})
		if endIdx == -1 {
			// 完全なフレームがまだない
			if startIdx > 0 {
				// 開始マーカーより前の不要なデータを削除
				remaining := data[startIdx:]
				frameBuffer.Reset()
				frameBuffer.Write(remaining)
			}
			break
		}

		// 完全なJPEGフレームを抽出
		endIdx += startIdx + 2 + 2 // マーカーのサイズを含める
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		frames = append(frames, frame)

		// 処理済みデータを削除
		remaining := data[endIdx:]
		frameBuffer.Reset()
		if len(remaining) > 0 {
			frameBuffer.Write(remaining)
			data = frameBuffer.Bytes()
		} else {
			break
		}
	}

	return frames
}
