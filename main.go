package DatasetDB

import (
	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/db"
	"github.com/ajholden/DatasetDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

func (instance *Instance) Engine(identity core.Identity, data core.DataEngine) *db.Engine {
	return db.NewEngine(instance.Persistence, identity, data)
}
