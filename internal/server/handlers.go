package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"scrapple/internal/arbiter"
	"scrapple/internal/config"
	"scrapple/internal/generated"
	"scrapple/internal/robot"
	"scrapple/internal/stream"
	"scrapple/internal/vision"
	"scrapple/internal/voice"
)

// ScrappleHandler は生成されたServerInterfaceを実装する
type ScrappleHandler struct {
	config   *config.Config
	cache    *vision.Cache
	loop     *vision.Loop
	mux      *stream.Multiplexer
	arbiter  *arbiter.Arbiter
	bridge   *robot.Bridge
	pipeline *voice.Pipeline
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *ScrappleHandler) HealthCheck(c *gin.Context) {
	response := generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *ScrappleHandler) GetStatus(c *gin.Context) {
	response := generated.StatusResponse{
		Status: generated.Running,
		Server: generated.ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		Owner:     string(h.arbiter.CurrentOwner()),
		Pipeline:  string(h.pipeline.State()),
		Robot:     convertRobotRecord(h.bridge.Status()),
		Stream:    string(h.mux.Status()),
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetDetections は検出スナップショット取得エンドポイントの実装
func (h *ScrappleHandler) GetDetections(c *gin.Context, params generated.GetDetectionsParams) {
	snapshot := h.cache.Get()

	detections := make([]generated.Detection, 0, len(snapshot.Detections))
	for _, d := range snapshot.Detections {
		if params.Label != nil && d.Label != *params.Label {
			continue
		}
		detections = append(detections, generated.Detection{
			Label:      d.Label,
			Cx:         d.CX,
			Cy:         d.CY,
			Radius:     d.Radius,
			Confidence: d.Confidence,
		})
	}

	response := generated.DetectionsResponse{
		Detections: detections,
		CapturedAt: snapshot.CapturedAt,
		Stale:      snapshot.Stale,
	}

	c.JSON(http.StatusOK, response)
}

// GetVideoFeed はMJPEGストリーミングエンドポイントの実装
func (h *ScrappleHandler) GetVideoFeed(c *gin.Context) {
	h.streamMJPEG(c)
}

// PauseVideo は手動一時停止エンドポイントの実装
// 所有権は移さずに推論ループへカメラ解放を要求する
func (h *ScrappleHandler) PauseVideo(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Robot.AcquireTimeout)
	defer cancel()

	if err := h.loop.Pause(ctx); err != nil {
		errorResponse := generated.ErrorResponse{
			Error:     "resource_busy",
			Message:   "カメラの解放を確認できませんでした",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusConflict, errorResponse)
		return
	}

	c.JSON(http.StatusOK, generated.AckResponse{
		Status:    "ok",
		Message:   "映像パイプラインを一時停止しました",
		Timestamp: time.Now(),
	})
}

// ResumeVideo は手動再開エンドポイントの実装
func (h *ScrappleHandler) ResumeVideo(c *gin.Context) {
	// ロボットがカメラを所有している間の再開は二重オープンになるため拒否する
	if h.arbiter.CurrentOwner() == arbiter.OwnerRobot {
		errorResponse := generated.ErrorResponse{
			Error:     "ownership_conflict",
			Message:   "ロボットがカメラを使用中のため再開できません",
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusConflict, errorResponse)
		return
	}

	h.loop.Resume()

	c.JSON(http.StatusOK, generated.AckResponse{
		Status:    "ok",
		Message:   "映像パイプラインを再開しました",
		Timestamp: time.Now(),
	})
}

// PickObject はピック要求エンドポイントの実装
// 所有権の取得に成功した場合のみトリガーを発行する
func (h *ScrappleHandler) PickObject(c *gin.Context) {
	var request generated.PickRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Target) == "" {
		errorResponse := generated.ErrorResponse{
			Error:     "invalid_request",
			Message:   "target が指定されていません",
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusBadRequest, errorResponse)
		return
	}

	target := strings.ToLower(strings.TrimSpace(request.Target))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.Robot.AcquireTimeout)
	defer cancel()

	if err := h.arbiter.Acquire(ctx, arbiter.OwnerRobot); err != nil {
		status := http.StatusConflict
		errorResponse := generated.ErrorResponse{
			Error:     "resource_busy",
			Message:   "カメラ所有権を取得できませんでした",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		if errors.Is(err, arbiter.ErrOwnershipConflict) {
			errorResponse.Error = "ownership_conflict"
		}
		c.JSON(status, errorResponse)
		return
	}

	if err := h.bridge.Trigger(target); err != nil {
		// トリガーに失敗した場合は所有権を残さない
		h.arbiter.ForceRelease()
		errorResponse := generated.ErrorResponse{
			Error:     "trigger_failed",
			Message:   "ピック要求の発行に失敗しました",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusInternalServerError, errorResponse)
		return
	}

	c.JSON(http.StatusOK, generated.AckResponse{
		Status:    "ok",
		Message:   "ピック要求を発行しました: " + target,
		Timestamp: time.Now(),
	})
}

// EmergencyKill は緊急リセットエンドポイントの実装
func (h *ScrappleHandler) EmergencyKill(c *gin.Context) {
	h.pipeline.EmergencyReset()

	c.JSON(http.StatusOK, generated.AckResponse{
		Status:    "ok",
		Message:   "緊急リセットを実行しました",
		Timestamp: time.Now(),
	})
}

// StartRobot は制御プロセス起動エンドポイントの実装
func (h *ScrappleHandler) StartRobot(c *gin.Context) {
	if err := h.bridge.Start(); err != nil {
		status := http.StatusInternalServerError
		errorName := "process_start_failure"
		if errors.Is(err, robot.ErrAlreadyRunning) {
			status = http.StatusConflict
			errorName = "already_running"
		}

		errorResponse := generated.ErrorResponse{
			Error:     errorName,
			Message:   "制御プロセスを起動できませんでした",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		c.JSON(status, errorResponse)
		return
	}

	c.JSON(http.StatusOK, convertRobotRecord(h.bridge.Status()))
}

// StopRobot は制御プロセス停止エンドポイントの実装
func (h *ScrappleHandler) StopRobot(c *gin.Context) {
	if err := h.bridge.Stop(h.config.Robot.GraceTimeout); err != nil {
		errorResponse := generated.ErrorResponse{
			Error:     "stop_failed",
			Message:   "制御プロセスを停止できませんでした",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusInternalServerError, errorResponse)
		return
	}

	c.JSON(http.StatusOK, generated.AckResponse{
		Status:    "ok",
		Message:   "制御プロセスを停止しました",
		Timestamp: time.Now(),
	})
}

// GetRobotStatus はブリッジ状態取得エンドポイントの実装
func (h *ScrappleHandler) GetRobotStatus(c *gin.Context) {
	c.JSON(http.StatusOK, convertRobotRecord(h.bridge.Status()))
}

// GetArmNext は直近のピック対象取得エンドポイントの実装
// アーム側がポーリングするトリガーレコードをそのまま返す
func (h *ScrappleHandler) GetArmNext(c *gin.Context) {
	record, err := robot.ReadTriggerRecord(h.config.Robot.TriggerPath)
	if err != nil {
		// レコード未作成・破損のどちらもnull扱いにする（アーム側を止めない）
		c.JSON(http.StatusOK, generated.ArmNextResponse{Target: nil})
		return
	}

	c.JSON(http.StatusOK, generated.ArmNextResponse{
		Target:    stringPtr(record.Target),
		Timestamp: timePtr(record.Timestamp),
	})
}

// RunVoiceCycle は音声ピックサイクル実行エンドポイントの実装
func (h *ScrappleHandler) RunVoiceCycle(c *gin.Context) {
	result, err := h.pipeline.RunCycle(c.Request.Context())
	h.respondCycle(c, result, err)
}

// AnnounceObjects は可視オブジェクト読み上げエンドポイントの実装
func (h *ScrappleHandler) AnnounceObjects(c *gin.Context) {
	spoken, objects, err := h.pipeline.Announce(c.Request.Context())
	if err != nil {
		// 読み上げ失敗は致命的ではない（一覧は返す）
		spoken = ""
	}

	c.JSON(http.StatusOK, generated.AnnounceResponse{
		Spoken:  spoken,
		Objects: objects,
	})
}

// EvaluateCommand はブラウザ側で文字起こしされたコマンドの検証・実行エンドポイントの実装
func (h *ScrappleHandler) EvaluateCommand(c *gin.Context) {
	var request generated.EvaluateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		errorResponse := generated.ErrorResponse{
			Error:     "invalid_request",
			Message:   "command が指定されていません",
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusBadRequest, errorResponse)
		return
	}

	result, err := h.pipeline.EvaluateCommand(c.Request.Context(), request.Command)
	h.respondCycle(c, result, err)
}

// respondCycle はサイクル結果をHTTPレスポンスへ変換する
func (h *ScrappleHandler) respondCycle(c *gin.Context, result *voice.CycleResult, err error) {
	if err != nil && result == nil {
		// 別のサイクルが進行中
		errorResponse := generated.ErrorResponse{
			Error:     "cycle_in_progress",
			Message:   "別のサイクルが進行中です",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		c.JSON(http.StatusConflict, errorResponse)
		return
	}

	if err != nil {
		status := http.StatusInternalServerError
		errorName := "execution_failed"
		if errors.Is(err, arbiter.ErrResourceBusy) || errors.Is(err, arbiter.ErrOwnershipConflict) {
			status = http.StatusConflict
			errorName = "resource_busy"
		}

		errorResponse := generated.ErrorResponse{
			Error:     errorName,
			Message:   "コマンドの実行に失敗しました",
			Details:   stringPtr(err.Error()),
			Timestamp: time.Now(),
		}
		c.JSON(status, errorResponse)
		return
	}

	c.JSON(http.StatusOK, convertCycleResult(result))
}

// ヘルパー関数

// convertRobotRecord はブリッジのレコードを生成されたスキーマに変換する
func convertRobotRecord(record robot.Record) generated.RobotRecord {
	converted := generated.RobotRecord{
		State: string(record.State),
		Pid:   record.PID,
	}

	if !record.StartedAt.IsZero() {
		converted.StartedAt = timePtr(record.StartedAt)
	}
	if record.LastTarget != "" {
		converted.LastTarget = stringPtr(record.LastTarget)
	}

	return converted
}

// convertCycleResult はサイクル結果を生成されたスキーマに変換する
func convertCycleResult(result *voice.CycleResult) generated.VoiceCycleResponse {
	decision := generated.Decision{
		Valid:  result.Decision.Valid,
		Reason: result.Decision.Reason,
	}
	if result.Decision.Target != "" {
		decision.Target = stringPtr(result.Decision.Target)
	}

	return generated.VoiceCycleResponse{
		CycleId:      result.CycleID,
		Command:      result.Command,
		Decision:     decision,
		PromptSpoken: result.PromptSpoken,
		ResultSpoken: result.ResultSpoken,
	}
}

// stringPtr は文字列のポインタを返すヘルパー関数
func stringPtr(s string) *string {
	return &s
}

// timePtr は時刻のポインタを返すヘルパー関数
func timePtr(t time.Time) *time.Time {
	return &t
}

// streamMJPEG はMJPEGストリームを配信する
func (h *ScrappleHandler) streamMJPEG(c *gin.Context) {
	// 購読を開始（切断時に必ず解除する）
	subscriber := h.mux.Subscribe()
	defer h.mux.Unsubscribe(subscriber)

	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	// レスポンスライターを取得
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			// クライアントが切断された
			return

		case frame, ok := <-subscriber.Frames():
			if !ok {
				// チャンネルがクローズされた
				return
			}

			// MJPEGフレームを書き込み
			_, err := writer.Write([]byte("--frame\r\n"))
			if err != nil {
				return
			}

			_, err = writer.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			if err != nil {
				return
			}

			_, err = writer.Write(frame)
			if err != nil {
				return
			}

			_, err = writer.Write([]byte("\r\n"))
			if err != nil {
				return
			}

			// バッファをフラッシュ
			flusher.Flush()
		}
	}
}
