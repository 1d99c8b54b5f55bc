package models

// ContractSpec представляет спецификацию контракта инструмента
//
// Статическая справочная запись: определяется при старте, неизменяема,
// разрешается по нормализованному символу на каждый запрос. Не персистится.
type ContractSpec struct {
	ContractSize     float64 `json:"contract_size"`      // единиц базового актива в одном лоте
	MinLot           float64 `json:"min_lot"`
	StepLot          float64 `json:"step_lot"`
	MaxLot           float64 `json:"max_lot"`
	Digits           int     `json:"digits"`             // точность цены, tick = 10^-digits
	CommissionPerLot float64 `json:"commission_per_lot"` // USD за лот
}
