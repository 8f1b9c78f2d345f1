package domain

import "errors"

// ドメイン固有のエラー型を定義
var (
	// ErrValidation は、バッチ開始前などのローカル入力検証に失敗した場合のエラーです
	ErrValidation = errors.New("入力が不足しています")

	// ErrCredentialInvalid は、APIキーが存在しない・無効・期限切れの場合のエラーです
	ErrCredentialInvalid = errors.New("APIキーが無効です")

	// ErrRemoteCallFailed は、認証以外の理由でリモート呼び出しが失敗した場合のエラーです
	ErrRemoteCallFailed = errors.New("リモート呼び出しに失敗しました")

	// ErrStorageUnavailable は、永続ストレージを利用できない場合のエラーです
	ErrStorageUnavailable = errors.New("ストレージを利用できません")

	// ErrWriteRejected は、容量制限などでストレージへの書き込みが拒否された場合のエラーです
	ErrWriteRejected = errors.New("ストレージへの書き込みが拒否されました")

	// ErrProfileNotFound は、指定されたプロフィールが存在しない場合のエラーです
	ErrProfileNotFound = errors.New("プロフィールが見つかりません")

	// ErrProfileLocked は、保存済みプロフィールの読み込み中に参照画像を変更しようとした場合のエラーです
	ErrProfileLocked = errors.New("保存済みプロフィールは変更できません")

	// ErrReferenceLimit は、参照画像の上限を超えた場合のエラーです
	ErrReferenceLimit = errors.New("参照画像の上限を超えています")

	// ErrBatchInProgress は、生成バッチが既に実行中の場合のエラーです
	ErrBatchInProgress = errors.New("生成バッチが実行中です")

	// ErrInvalidMedia は、画像データが不正な場合のエラーです
	ErrInvalidMedia = errors.New("無効な画像データです")
)
