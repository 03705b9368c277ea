// Package camera キャプチャデバイスとキャプチャパイプラインを扱う
//
// # 責務
// - カメラデバイスの検出と向き・種類の判定
// - 起動時・切り替え時のデバイス選択
// - キャプチャパイプライン（入力・出力・実行状態）の抽象化
// - V4L2デバイスからのプレビュー取得と静止画撮影
//
// # 仕様
// - Discovery: V4L2デバイスの自動検出・実名取得、設定による向きの上書き
// - Selector: 背面デュアル → 背面広角 → 前面広角の順で初期デバイスを選択
// - Session: 構成トランザクション内でのみ入出力を変更できる
// - V4L2Capturer: ffmpeg経由での画像キャプチャ
// - Session は単一ゴルーチン（ワーカーキュー）から操作すること
//
// # 前提要件
//   - v4l-utils: カメラ名の取得とデバイス制御に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
