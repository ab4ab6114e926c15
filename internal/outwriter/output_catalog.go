package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/geoseries/core/recipe"
	"github.com/huangsam/geoseries/internal/contract"
	"github.com/huangsam/geoseries/schema"
)

type datasetRow struct {
	Name      string  `csv:"name"`
	Bands     string  `csv:"bands"`
	CRS       string  `csv:"crs"`
	PixelSize float64 `csv:"pixel_size"`
	Slices    int     `csv:"slices"`
	First     string  `csv:"first"`
	Last      string  `csv:"last"`
}

type recipeRow struct {
	Name        string `csv:"name"`
	Dataset     string `csv:"dataset"`
	Range       string `csv:"range"`
	Step        string `csv:"step"`
	Columns     string `csv:"columns"`
	Description string `csv:"description"`
}

func dateOrEmpty(info schema.DatasetInfo, first bool) string {
	t := info.Last
	if first {
		t = info.First
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(schema.DefaultDateLayout)
}

// WriteDatasetInfos outputs catalog collections, dispatching based on the output format configured.
func WriteDatasetInfos(infos []schema.DatasetInfo, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, infos)
		}, "Wrote JSON datasets")
	case schema.CSVOut:
		rows := make([]datasetRow, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, datasetRow{
				Name:      info.Name,
				Bands:     strings.Join(info.Bands, "|"),
				CRS:       info.CRS,
				PixelSize: info.PixelSize,
				Slices:    info.Slices,
				First:     dateOrEmpty(info, true),
				Last:      dateOrEmpty(info, false),
			})
		}
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, rows)
		}, "Wrote CSV datasets")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := newTable(w, []string{"Dataset", "Bands", "CRS", "Pixel", "Slices", "First", "Last"})
			data := make([][]string, 0, len(infos))
			for _, info := range infos {
				data = append(data, []string{
					info.Name,
					joinOrDash(info.Bands),
					info.CRS,
					strconv.FormatFloat(info.PixelSize, 'g', -1, 64),
					strconv.Itoa(info.Slices),
					dateOrEmpty(info, true),
					dateOrEmpty(info, false),
				})
			}
			return renderTable(table, data)
		}, "Wrote datasets table")
	}
}

func toRecipeRow(rec schema.Recipe, columns []string) recipeRow {
	span := rec.Start + " .. " + rec.End
	switch {
	case rec.Static:
		span = "static"
	case len(rec.Dates) > 0:
		span = fmt.Sprintf("%d dates", len(rec.Dates))
	}
	return recipeRow{
		Name:        rec.Name,
		Dataset:     rec.Dataset,
		Range:       span,
		Step:        rec.Step,
		Columns:     strings.Join(columns, "|"),
		Description: rec.Description,
	}
}

// WriteRecipeList outputs recipes, dispatching based on the output format configured.
// JSON carries the full recipe definitions.
func WriteRecipeList(recipes []schema.Recipe, cfg *contract.Config) error {
	rows := make([]recipeRow, 0, len(recipes))
	for _, rec := range recipes {
		rows = append(rows, toRecipeRow(rec, recipe.Columns(rec)))
	}
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, recipes)
		}, "Wrote JSON recipes")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, rows)
		}, "Wrote CSV recipes")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := newTable(w, []string{"Recipe", "Dataset", "Range", "Step", "Columns", "Description"})
			data := make([][]string, 0, len(rows))
			for _, r := range rows {
				data = append(data, []string{r.Name, r.Dataset, r.Range, r.Step, strings.ReplaceAll(r.Columns, "|", ", "), r.Description})
			}
			return renderTable(table, data)
		}, "Wrote recipes table")
	}
}
