package domain

// SessionArchive - полная запись завершенной партии для долгого хранения.
// Пишется жнецом перед удалением сессии из памяти.
type SessionArchive struct {
	SessionID   string         `json:"sessionId"`
	Name        string         `json:"name"`
	CreatedAt   int64          `json:"createdAt"`  // unix seconds
	ArchivedAt  int64          `json:"archivedAt"` // unix seconds
	Turns       int            `json:"turns"`
	PlayerCount int            `json:"playerCount"`
	Actions     []ActionRecord `json:"actions"`
}
