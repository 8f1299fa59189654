package config

import (
	saftConfig "github.com/iurnickita/vendussync/internal/saft/config"
	vendusConfig "github.com/iurnickita/vendussync/internal/service/vendusclient/config"
)

const DefaultPerPage = 20

type Config struct {
	Vendus vendusConfig.Config
	SAFT   saftConfig.Config
	// PerPage - размер страницы по умолчанию
	PerPage int
	// BackfillReferences - после SyncAll связать документы с клиентами, загруженными позже
	BackfillReferences bool
}
