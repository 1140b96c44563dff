package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

const (
	formDocument = "document"
	formMode     = "mode"
	formFields   = "fields"
	formPreset   = "preset"

	// Names sent by the first web client.
	formLegacyMode   = "extractionType"
	formLegacyFields = "customFields"

	// multipartSlack covers boundaries and the non-file form values.
	multipartSlack = 1 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExtractHandler stages the uploaded document and runs it through the pipeline.
func (a *API) ExtractHandler(c *gin.Context) {
	if a.stager.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.stager.MaxBytes+multipartSlack)
	}

	fh, err := c.FormFile(formDocument)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			a.fail(c, common.TooLarge(fmt.Sprintf("File size too large. Please select a file smaller than %dMB.", a.stager.MaxBytes>>20)))
			return
		}
		a.fail(c, common.BadRequest("No file uploaded. Please select a document to process.", err))
		return
	}

	rawMode := firstNonEmpty(c.PostForm(formMode), c.PostForm(formLegacyMode))
	if strings.TrimSpace(rawMode) == "" {
		a.fail(c, common.BadRequestf("Extraction mode is required. Expected one of: %s", strings.Join(constants.ModesAsStrings(), ", ")))
		return
	}
	mode, ok := constants.ParseMode(rawMode)
	if !ok {
		a.fail(c, common.BadRequestf("Invalid extraction mode %q. Expected one of: %s", rawMode, strings.Join(constants.ModesAsStrings(), ", ")))
		return
	}

	var fields []schema.Field
	if mode == constants.ModeCustom {
		if fields, err = a.customFields(c); err != nil {
			a.fail(c, err)
			return
		}
	}

	f, err := fh.Open()
	if err != nil {
		a.fail(c, common.Internal("Failed to read uploaded file", err))
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	doc, err := a.stager.Stage(ctx, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		a.fail(c, err)
		return
	}

	result, err := a.extractor.Process(ctx, pipeline.Request{Mode: mode, Fields: fields, Document: doc})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// customFields reads the field list from the form, falling back to a named preset.
func (a *API) customFields(c *gin.Context) ([]schema.Field, error) {
	raw := firstNonEmpty(c.PostForm(formFields), c.PostForm(formLegacyFields))
	if raw == "" {
		if name := c.PostForm(formPreset); name != "" && a.presets != nil {
			p, ok := a.presets.Get(name)
			if !ok {
				return nil, common.BadRequestf("Unknown preset %q", name)
			}
			return p.Fields, nil
		}
	}
	return schema.ParseFields([]byte(raw))
}

func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "OK",
		"message":         "Document extractor is running",
		"modelConfigured": a.backend != "",
		"backend":         a.backend,
	})
}

func (a *API) SupportedTypesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"supportedTypes": constants.SupportedMimeTypes})
}

func (a *API) ListPresetsHandler(c *gin.Context) {
	if a.presets == nil {
		c.JSON(http.StatusOK, gin.H{"presets": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": a.presets.List()})
}

func (a *API) GetPresetHandler(c *gin.Context) {
	name := c.Param("name")
	if a.presets != nil {
		if p, ok := a.presets.Get(name); ok {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Preset not found"})
}

// ExportXLSXHandler renders a previously returned extraction result as a workbook.
func (a *API) ExportXLSXHandler(c *gin.Context) {
	var res pipeline.Result
	if err := c.ShouldBindJSON(&res); err != nil {
		a.fail(c, common.BadRequest("Invalid extraction result", err))
		return
	}
	b, err := a.exporter.ExportResultXLSX(c.Request.Context(), &res)
	if err != nil {
		a.fail(c, common.Internal("Failed to export result", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(res.FileName)))
	c.Data(http.StatusOK, xlsxContentType, b)
}

func exportName(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = schema.NormalizeName(base)
	if base == "" {
		base = "extraction"
	}
	return base + ".xlsx"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
