// Package vision は物体検出の実行と検出結果の保持を担う
//
// # 責務
// - カメラフレームの取得と検出器の定期実行（推論ループ）
// - 最新の検出結果スナップショットの保持と配布
// - カメラ一時停止・再開の確認付き遷移
// - デバイス喪失時の縮退運転（プレースホルダ配信を継続）
//
// # 仕様
// - Detection: フレームサイズで正規化された検出結果（解像度非依存）
// - Cache: スナップショットの原子的な差し替え。読み手は常にコピーを受け取る
// - Loop: Nフレームごとに検出を実行し、それ以外のフレームでは前回の
//   検出バッチをそのまま再掲する（オーバーレイ表示の連続性のため）
// - Pause は解放確認が取れるまでブロックする。確認後はポーリングせず
//   Resume まで待機する
package vision
