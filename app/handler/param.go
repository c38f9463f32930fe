package handler

import (
	"financebladi/curve"

	"github.com/go-playground/validator/v10"
)

/***************************************************************** request ****************************************************************/

type HistoryParam struct {
	Days int `query:"days" validate:"min=1,max=365"`
}

type CurveParam struct {
	Live bool `query:"live"`
}

type EventStatusChangeRequest struct {
	Id     uint `json:"id" validate:"required"`
	Active bool `json:"active"`
}

type EventLaunchRequest struct {
	Id uint `json:"id" validate:"required"`
}

/***************************************************************** response ****************************************************************/

type HistoryResponse struct {
	Columns []string     `json:"columns"`
	Source  string       `json:"source"`
	Rows    []HistoryRow `json:"rows"`
}

type HistoryRow struct {
	Date     string   `json:"date"`
	Degraded bool     `json:"degraded"`
	Cells    []string `json:"cells"`
}

type CurveResponse struct {
	Reference string             `json:"reference_date"`
	Source    string             `json:"source"`
	Points    []CurvePoint       `json:"points"`
	Rates     curve.Rates        `json:"rates"`
	Values    map[string]float64 `json:"values"`
	Fallback  bool               `json:"fallback"`
}

type CurvePoint struct {
	MaturityDate string  `json:"maturity_date"`
	Days         int     `json:"days"`
	Years        float64 `json:"years"`
	Rate         float64 `json:"rate"`
}

type EventResponse struct {
	Id          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Schedule    string `json:"schedule"`
	Active      bool   `json:"active"`
}

var validate = validator.New()

func validCheck(param any) error {
	return validate.Struct(param)
}
