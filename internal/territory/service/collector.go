package service

import (
	"context"

	"go.uber.org/zap"

	"Underworld/internal/shared/gameconfig/district"
	"Underworld/internal/shared/types"
	"Underworld/internal/territory/entity"
	"Underworld/modules/kit/logx"
)

type IncomeKind string

const (
	IncomeResident IncomeKind = "resident"
	IncomeBusiness IncomeKind = "business"
)

func (k IncomeKind) Valid() bool {
	return k == IncomeResident || k == IncomeBusiness
}

// txOwner 让 Update 回调内的记录充当 OwnerLookup，保证“算税”和“记税”看到同一个主人。
type txOwner struct {
	id  types.DistrictID
	rec entity.TerritoryRecord
}

func (o txOwner) Owner(id types.DistrictID) (types.PlayerID, bool) {
	if id != o.id {
		return types.NoPlayer, false
	}
	return o.rec.Owner, true
}

// Collector 入账一笔收入：拆税、给玩家加钱、给街区主人记税。
type Collector struct {
	registry *district.Registry
	store    *entity.Store
	listener Listener
	log      logx.Logger
}

func NewCollector(registry *district.Registry, store *entity.Store, l logx.Logger) *Collector {
	return &Collector{registry: registry, store: store, listener: NopListener{}, log: logx.OrNop(l)}
}

func (c *Collector) SetListener(l Listener) {
	if l == nil {
		l = NopListener{}
	}
	c.listener = l
}

// Collect 按玩家当前住处结算，没有住处时全额到账不抽税。
func (c *Collector) Collect(ctx context.Context, p Player, base int64, kind IncomeKind) (ResidentIncome, error) {
	if !kind.Valid() {
		return ResidentIncome{}, ErrInvalidAmount.WithMsg("未知收入类型").WithData("kind", string(kind))
	}
	id, _ := c.store.ResidenceOf(p.ID())
	compute := func(owners OwnerLookup) (ResidentIncome, error) {
		if kind == IncomeBusiness {
			return ComputeBusinessIncome(owners, c.registry, p.ID(), id, base)
		}
		return ComputeResidentIncome(owners, p.ID(), id, base)
	}

	if id == "" {
		inc, err := compute(txOwner{})
		if err != nil {
			return inc, err
		}
		p.CreditCash(inc.Net)
		return inc, nil
	}

	var inc ResidentIncome
	err := c.store.Update(id, func(tx *entity.Tx) error {
		var err error
		inc, err = compute(txOwner{id: id, rec: tx.Record()})
		if err != nil {
			return err
		}
		tx.RecordTax(inc.Tax)
		return nil
	})
	if err != nil {
		return ResidentIncome{}, err
	}
	p.CreditCash(inc.Net)
	if inc.Tax > 0 {
		c.log.WithContext(ctx).Debug("territory.tax collected",
			zap.String("district", string(id)),
			zap.Int64("owner", int64(inc.Owner)),
			zap.Int64("tax", inc.Tax),
		)
		c.listener.OnTaxCollected(id, inc.Owner, inc.Tax)
	}
	return inc, nil
}
