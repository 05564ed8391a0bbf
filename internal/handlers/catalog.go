package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"netbons/internal/blobstore"
	"netbons/internal/models"
	"netbons/internal/services"

	"github.com/gin-gonic/gin"
)

type recommendRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Add    bool   `json:"add"`
}

func (a *API) listCatalog(c *gin.Context) {
	category := models.CategoryID(c.DefaultQuery("category", string(models.CategoryAll)))
	movies := a.c.Catalog.ByCategory(category)
	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"movies":   movies,
		"count":    len(movies),
	})
}

func (a *API) rows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"hero": a.c.Catalog.Hero(),
		"rows": a.c.Catalog.Rows(),
	})
}

func (a *API) getMovie(c *gin.Context) {
	movie, ok := a.c.Catalog.Get(c.Param("id"))
	if !ok {
		writeError(c, services.ErrMovieNotFound)
		return
	}
	c.JSON(http.StatusOK, movie)
}

func (a *API) whyWatch(c *gin.Context) {
	movie, ok := a.c.Catalog.Get(c.Param("id"))
	if !ok {
		writeError(c, services.ErrMovieNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":   movie.ID,
		"text": a.c.Assistant.WhyWatch(c.Request.Context(), movie.Title),
	})
}

func (a *API) toggleWatchList(c *gin.Context) {
	movie, ok := a.c.Catalog.ToggleWatchList(c.Request.Context(), c.Param("id"))
	if !ok {
		writeError(c, services.ErrMovieNotFound)
		return
	}
	c.JSON(http.StatusOK, movie)
}

func (a *API) play(c *gin.Context) {
	pb, err := a.c.Player.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pb)
}

// serveMedia streams a blob behind a playback token, with range support.
func (a *API) serveMedia(c *gin.Context) {
	if a.c.Tokens == nil {
		c.Status(http.StatusNotFound)
		return
	}

	blob, err := a.c.Tokens.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			_ = c.Error(err)
		}
		c.Status(http.StatusNotFound)
		return
	}

	if blob.ContentType != "" {
		c.Header("Content-Type", blob.ContentType)
	}
	http.ServeContent(c.Writer, c.Request, "", blob.CreatedAt, bytes.NewReader(blob.Data))
}

func (a *API) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	var meta services.Metadata
	if err := c.ShouldBind(&meta); err != nil {
		badRequest(c, err)
		return
	}
	useAssistant, _ := strconv.ParseBool(c.PostForm("useAssistant"))

	f, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, err)
		return
	}

	movie, err := a.c.Uploads.Publish(c.Request.Context(), services.UploadRequest{
		Filename:     header.Filename,
		Data:         data,
		UseAssistant: useAssistant,
		Metadata:     meta,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movie)
}

func (a *API) addLink(c *gin.Context) {
	var req services.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	movie, err := a.c.Uploads.AddLink(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movie)
}

func (a *API) recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	movie, err := a.c.Uploads.Recommend(c.Request.Context(), req.Prompt, req.Add)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if req.Add {
		status = http.StatusCreated
	}
	c.JSON(status, movie)
}
