package http

import (
	"bytes"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"asthmapredict/patient"
	"asthmapredict/predict"
)

const pageTitle = "Asthma Prediction App"

type pageData struct {
	Title     string
	Sections  []sectionView
	Result    *predict.Result
	Collected []collectedRow
	Error     string
}

type sectionView struct {
	Name   string
	Fields []fieldView
}

type fieldView struct {
	patient.Field
	Value   string
	Error   string
	Options []optionView
}

type optionView struct {
	Label    string
	Selected bool
}

type collectedRow struct {
	Column string
	Value  string
	Code   string
}

// buildPage 按分组排列字段并填入显示值
func buildPage(values map[string]string, errs map[string]string) pageData {
	bySection := make(map[string][]fieldView)
	for _, f := range patient.Fields() {
		view := fieldView{Field: f, Value: values[f.Name], Error: errs[f.Name]}
		if f.Kind == patient.KindCategorical {
			for _, c := range f.Categories {
				view.Options = append(view.Options, optionView{Label: c, Selected: c == view.Value})
			}
		}
		bySection[f.Section] = append(bySection[f.Section], view)
	}
	page := pageData{Title: pageTitle}
	for _, name := range patient.Sections() {
		page.Sections = append(page.Sections, sectionView{Name: name, Fields: bySection[name]})
	}
	return page
}

func collected(record patient.Record) []collectedRow {
	labels := record.Labels()
	rows := make([]collectedRow, 0, len(labels))
	for _, name := range patient.Columns() {
		v, _ := record.Get(name)
		rows = append(rows, collectedRow{Column: name, Value: labels[name], Code: formatCode(v)})
	}
	return rows
}

func (h *Handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("rendering input fields")
	h.renderPage(w, http.StatusOK, buildPage(patient.Defaults().Labels(), nil))
}

func (h *Handlers) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := buildPage(patient.Defaults().Labels(), nil)
		page.Error = "could not read the submitted form"
		h.renderPage(w, http.StatusBadRequest, page)
		return
	}

	values := make(map[string]string)
	for _, name := range patient.Columns() {
		if v, ok := r.PostForm[name]; ok && len(v) > 0 {
			values[name] = v[0]
		}
	}

	record, err := patient.FromValues(values, true)
	if err != nil {
		page := buildPage(mergeDefaults(values), fieldErrors(err))
		page.Error = "Please correct the highlighted fields."
		h.renderPage(w, http.StatusBadRequest, page)
		return
	}
	h.logger.Debug("user input collected", zap.Any("features", record))

	page := buildPage(record.Labels(), nil)
	page.Collected = collected(record)

	result, err := h.service.Predict(r.Context(), record, predict.SourceForm)
	if err != nil {
		status, msg := predictErrorStatus(err)
		page.Error = msg
		h.renderPage(w, status, page)
		return
	}
	page.Result = &result
	h.renderPage(w, http.StatusOK, page)
}

func (h *Handlers) renderPage(w http.ResponseWriter, status int, page pageData) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("render form", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func mergeDefaults(values map[string]string) map[string]string {
	merged := patient.Defaults().Labels()
	for k, v := range values {
		merged[k] = v
	}
	return merged
}

func fieldErrors(err error) map[string]string {
	if verrs, ok := err.(patient.ValidationErrors); ok {
		return verrs.ByField()
	}
	return map[string]string{"": err.Error()}
}

func formatCode(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
