// Package jobs は非同期ジョブ管理機能を提供します。
//
// 投稿の削除・サムネイル差し替え・アバター変更で不要になったアップロードファイルを
// Asynq のキュー経由で削除します。ジョブ状態は Redis に TTL 付きで保存されます。
package jobs
