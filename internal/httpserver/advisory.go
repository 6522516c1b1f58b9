package httpserver

import (
	"io"
	"net/http"
	"strings"

	"farmsmart/internal/service/advisory"
	"github.com/gin-gonic/gin"
)

// soilAnalysisHandler accepts either a multipart upload in the "image" field
// or the raw image bytes as the request body.
func soilAnalysisHandler(c *gin.Context) {
	image, err := readImage(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := currentWorkspace(c).Advisory.AnalyzeSoil(c.Request.Context(), image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func readImage(c *gin.Context) ([]byte, error) {
	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	// One byte over the limit lets CheckImage reject oversized uploads.
	return io.ReadAll(io.LimitReader(r, advisory.MaxImageBytes+1))
}

func advisoryHandler(c *gin.Context) {
	var form advisory.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	rec, err := currentWorkspace(c).Advisory.Advise(c.Request.Context(), form)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
