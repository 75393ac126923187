package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/package-metrics-aggregation/internal/common"
	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
	"github.com/i474232898/package-metrics-aggregation/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *metrics.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/packages", func(c *fiber.Ctx) error {
		type entry struct {
			Package  metrics.Package   `json:"package"`
			Overview *metrics.Overview `json:"overview,omitempty"`
		}

		var out []entry
		for _, pkg := range service.Packages() {
			e := entry{Package: pkg}
			if ov, err := service.GetOverview(pkg); err == nil {
				e.Overview = &ov
			}
			out = append(out, e)
		}
		return c.JSON(fiber.Map{"packages": out})
	})

	v1.Get("/packages/:name/series", func(c *fiber.Ctx) error {
		pkg, err := lookupPackage(c, service)
		if err != nil {
			return err
		}

		var req seriesQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		source, err := metrics.ParseSource(req.Source)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		granularity, err := metrics.ParseGranularity(req.Granularity)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		points, err := service.QuerySeries(pkg, metrics.SeriesQuery{
			Source:      source,
			Range:       metrics.DateRange{Start: req.From, End: req.To},
			Granularity: granularity,
			Window:      req.Window,
		})
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(fiber.Map{
			"package":     pkg,
			"source":      source,
			"granularity": granularity,
			"from":        req.From,
			"to":          req.To,
			"points":      points,
		})
	})

	v1.Get("/packages/:name/combined", func(c *fiber.Ctx) error {
		pkg, err := lookupPackage(c, service)
		if err != nil {
			return err
		}

		var req combinedQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		srcA, err := metrics.ParseSource(req.SourceA)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		srcB, err := metrics.ParseSource(req.SourceB)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		granularity, err := metrics.ParseGranularity(req.Granularity)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		points, err := service.QueryCombined(pkg, srcA, srcB,
			metrics.DateRange{Start: req.From, End: req.To}, granularity)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(fiber.Map{
			"package":     pkg,
			"sourceA":     srcA,
			"sourceB":     srcB,
			"granularity": granularity,
			"points":      points,
		})
	})

	v1.Get("/packages/:name/summary", func(c *fiber.Ctx) error {
		pkg, err := lookupPackage(c, service)
		if err != nil {
			return err
		}

		var req summaryQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		source, err := metrics.ParseSource(req.Source)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := service.QuerySummary(pkg, source, metrics.DateRange{Start: req.From, End: req.To})
		if err != nil {
			return mapServiceError(err)
		}

		resp := fiber.Map{
			"package": pkg,
			"source":  source,
			"summary": summary,
		}
		if ov, err := service.GetOverview(pkg); err == nil {
			resp["overview"] = ov
		}
		return c.JSON(resp)
	})

	v1.Get("/packages/:name/releases", func(c *fiber.Ctx) error {
		pkg, err := lookupPackage(c, service)
		if err != nil {
			return err
		}

		releases, err := service.GetReleases(pkg)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(fiber.Map{
			"package":  pkg,
			"releases": releases,
		})
	})
}

// lookupPackage resolves the :name path parameter against the tracked
// package list.
func lookupPackage(c *fiber.Ctx, service *metrics.Service) (metrics.Package, error) {
	name := c.Params("name")
	pkg, ok := service.PackageByName(name)
	if !ok {
		return metrics.Package{}, fiber.NewError(fiber.StatusNotFound, "package is not tracked")
	}
	return pkg, nil
}

// mapServiceError converts core and store errors into HTTP statuses:
// caller-input problems become 400, missing data 404.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no data for requested package")
	case errors.Is(err, metrics.ErrInvalidRange),
		errors.Is(err, metrics.ErrUnsupportedGranularity),
		errors.Is(err, metrics.ErrMisalignedSeries),
		errors.Is(err, metrics.ErrInvalidWindow),
		errors.Is(err, metrics.ErrUnknownSource):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute metric series")
	}
}

// seriesQuery holds query parameters for the series endpoint.
type seriesQuery struct {
	Source      string `validate:"required"`
	Granularity string
	From        time.Time `validate:"required"`
	To          time.Time `validate:"required"`
	Window      int       `validate:"omitempty,min=1,max=90"`
}

func (q *seriesQuery) bind(c *fiber.Ctx) error {
	q.Source = c.Query("source")
	q.Granularity = c.Query("granularity")

	from, to, err := parseRange(c)
	if err != nil {
		return err
	}
	q.From = from
	q.To = to

	if w := c.Query("window"); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil || n < 1 {
			return errors.New("window must be a positive integer")
		}
		q.Window = n
	}
	return nil
}

// combinedQuery holds query parameters for the combined endpoint.
type combinedQuery struct {
	SourceA     string `validate:"required"`
	SourceB     string `validate:"required"`
	Granularity string
	From        time.Time `validate:"required"`
	To          time.Time `validate:"required"`
}

func (q *combinedQuery) bind(c *fiber.Ctx) error {
	q.SourceA = c.Query("sourceA")
	q.SourceB = c.Query("sourceB")
	q.Granularity = c.Query("granularity")

	from, to, err := parseRange(c)
	if err != nil {
		return err
	}
	q.From = from
	q.To = to
	return nil
}

// summaryQuery holds query parameters for the summary endpoint. Source
// defaults to PyPI downloads, matching the dashboard's headline cards.
type summaryQuery struct {
	Source string    `validate:"required"`
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required"`
}

func (q *summaryQuery) bind(c *fiber.Ctx) error {
	q.Source = c.Query("source", string(metrics.SourcePyPIDownloads))

	from, to, err := parseRange(c)
	if err != nil {
		return err
	}
	q.From = from
	q.To = to
	return nil
}

// parseRange reads the from/to query parameters as calendar dates.
func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to query parameters are required")
	}

	from, err := common.ParseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := common.ParseDate(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
