package client

// IDMap держит биекцию локальных id сущностей на серверные.
// Локальные id раздает симуляция клиента, серверные приходят с поллингом.
// Оба направления нужны: очередь переводит локальные id в серверные перед
// отправкой, согласователь идет в обратную сторону.
type IDMap struct {
	localToServer map[int64]int64
	serverToLocal map[int64]int64
}

func NewIDMap() *IDMap {
	return &IDMap{
		localToServer: make(map[int64]int64),
		serverToLocal: make(map[int64]int64),
	}
}

// Bind связывает пару id. Старые связи обеих сторон рвутся,
// чтобы биекция не расползлась.
func (m *IDMap) Bind(localID, serverID int64) {
	if old, ok := m.localToServer[localID]; ok {
		delete(m.serverToLocal, old)
	}
	if old, ok := m.serverToLocal[serverID]; ok {
		delete(m.localToServer, old)
	}
	m.localToServer[localID] = serverID
	m.serverToLocal[serverID] = localID
}

func (m *IDMap) Server(localID int64) (int64, bool) {
	id, ok := m.localToServer[localID]
	return id, ok
}

func (m *IDMap) Local(serverID int64) (int64, bool) {
	id, ok := m.serverToLocal[serverID]
	return id, ok
}

// UnbindLocal рвет связь по локальной стороне.
func (m *IDMap) UnbindLocal(localID int64) {
	if sid, ok := m.localToServer[localID]; ok {
		delete(m.serverToLocal, sid)
		delete(m.localToServer, localID)
	}
}

// UnbindServer рвет связь по серверной стороне.
func (m *IDMap) UnbindServer(serverID int64) {
	if lid, ok := m.serverToLocal[serverID]; ok {
		delete(m.localToServer, lid)
		delete(m.serverToLocal, serverID)
	}
}

// Locals возвращает снимок всех связанных локальных id.
func (m *IDMap) Locals() []int64 {
	ids := make([]int64, 0, len(m.localToServer))
	for id := range m.localToServer {
		ids = append(ids, id)
	}
	return ids
}

func (m *IDMap) Len() int {
	return len(m.localToServer)
}
