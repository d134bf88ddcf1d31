package district

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"Underworld/internal/shared/config"
	"Underworld/internal/shared/types"
)

type Category string

const (
	CategoryResidential   Category = "residential"
	CategoryCommercial    Category = "commercial"
	CategoryIndustrial    Category = "industrial"
	CategoryEntertainment Category = "entertainment"
)

// 收益类型
const (
	BenefitBusiness    = "business"
	BenefitLaundering  = "laundering"
	BenefitSmuggling   = "smuggling"
	BenefitRecruitment = "recruitment"
	BenefitDrugs       = "drugs"
)

// NeutralMultiplier 街区没有定义某项收益时的倍率。
const NeutralMultiplier = 1.0

type District struct {
	ID             types.DistrictID   `json:"id" mapstructure:"id" validate:"required"`
	Name           string             `json:"name" mapstructure:"name" validate:"required"`
	Des            string             `json:"des" mapstructure:"des"`
	Category       Category           `json:"category" mapstructure:"category" validate:"oneof=residential commercial industrial entertainment"`
	BaseIncome     int64              `json:"base_income" mapstructure:"base_income" validate:"gte=0"`
	MaxBusinesses  int                `json:"max_businesses" mapstructure:"max_businesses" validate:"gte=0"`
	RiskTier       int                `json:"risk_tier" mapstructure:"risk_tier" validate:"gte=1,lte=5"`
	PolicePresence int                `json:"police_presence" mapstructure:"police_presence" validate:"gte=0,lte=100"`
	MoveCost       int64              `json:"move_cost" mapstructure:"move_cost" validate:"gte=0"`
	ClaimCost      int64              `json:"claim_cost" mapstructure:"claim_cost" validate:"gt=0"`
	Benefits       map[string]float64 `json:"benefits" mapstructure:"benefits" validate:"dive,gt=0"`
}

func (d District) clone() District {
	d.Benefits = maps.Clone(d.Benefits)
	return d
}

// Multiplier 返回某项收益倍率，未定义时为 1.0。
func (d District) Multiplier(benefit string) float64 {
	if v, ok := d.Benefits[benefit]; ok {
		return v
	}
	return NeutralMultiplier
}

type catalog struct {
	Title string     `mapstructure:"title"`
	List  []District `mapstructure:"list" validate:"required,min=1,dive"`
}

//go:embed districts.json
var defaultData []byte

// Registry 是只读的街区目录，加载后不再变化，可并发读。
type Registry struct {
	list  []District
	index map[types.DistrictID]int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func New(list []District) (*Registry, error) {
	c := catalog{List: list}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid district catalog: %w", err)
	}
	r := &Registry{
		list:  make([]District, 0, len(list)),
		index: make(map[types.DistrictID]int, len(list)),
	}
	for _, d := range list {
		if _, dup := r.index[d.ID]; dup {
			return nil, fmt.Errorf("invalid district catalog: duplicate id %q", d.ID)
		}
		r.index[d.ID] = len(r.list)
		r.list = append(r.list, d.clone())
	}
	return r, nil
}

// Decode 从 json/yaml 内容解析目录，format 取 viper 支持的类型名。
func Decode(raw []byte, format string) (*Registry, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("read district catalog: %w", err)
	}
	var c catalog
	if err := v.Unmarshal(&c, config.DecodeHook()); err != nil {
		return nil, fmt.Errorf("decode district catalog: %w", err)
	}
	return New(c.List)
}

// Load 读取外部目录文件；path 为空时使用内置目录。
func Load(path string) (*Registry, error) {
	if path == "" {
		return Decode(defaultData, "json")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "json"
	}
	return Decode(raw, format)
}

// Default 内置目录，解析失败说明打包数据有误，直接 panic。
func Default() *Registry {
	r, err := Load("")
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(id types.DistrictID) (District, bool) {
	i, ok := r.index[id]
	if !ok {
		return District{}, false
	}
	return r.list[i].clone(), true
}

func (r *Registry) Has(id types.DistrictID) bool {
	_, ok := r.index[id]
	return ok
}

// Index 返回街区在目录中的序号，用于按目录顺序加锁与排序。
func (r *Registry) Index(id types.DistrictID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// List 固定按目录顺序返回。
func (r *Registry) List() []District {
	out := make([]District, len(r.list))
	for i, d := range r.list {
		out[i] = d.clone()
	}
	return out
}

func (r *Registry) IDs() []types.DistrictID {
	out := make([]types.DistrictID, len(r.list))
	for i, d := range r.list {
		out[i] = d.ID
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.list)
}

// ClaimCosts 与目录顺序对齐的占领花费。
func (r *Registry) ClaimCosts() []int64 {
	out := make([]int64, len(r.list))
	for i, d := range r.list {
		out[i] = d.ClaimCost
	}
	return out
}

func (r *Registry) BusinessMultiplier(id types.DistrictID) float64 {
	return r.multiplier(id, BenefitBusiness)
}

func (r *Registry) LaunderingMultiplier(id types.DistrictID) float64 {
	return r.multiplier(id, BenefitLaundering)
}

func (r *Registry) multiplier(id types.DistrictID, benefit string) float64 {
	i, ok := r.index[id]
	if !ok {
		return NeutralMultiplier
	}
	return r.list[i].Multiplier(benefit)
}
