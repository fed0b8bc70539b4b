package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tiny-url-service/csvjob"
	"tiny-url-service/model"
	"tiny-url-service/qr"
	"tiny-url-service/utils"

	"github.com/rs/zerolog/log"
)

const maxCSVUploadBytes = 10 << 20 // 10 MB

// UploadCSV handles POST /csv - accepts a multipart CSV upload and fans every
// URL in it out to the row workers. The response arrives before any row has
// been processed; callers follow the progress endpoints.
//
// Form fields: "file" (the CSV), optional "job" (client-chosen job ID),
// optional "qr" (truthy enables QR generation for each row) plus the same
// format fields the JSON shorten endpoint takes.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	if err := r.ParseMultipartForm(maxCSVUploadBytes); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Request must be a multipart CSV upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Missing CSV file field")
		return
	}
	defer file.Close()

	urls, err := readCSVCells(file)
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Could not parse CSV file")
		return
	}

	qrRequested := false
	if v := r.FormValue("qr"); v != "" {
		qrRequested, _ = strconv.ParseBool(v)
	}

	var format *model.Format
	if qrRequested {
		f := formFormat(r)
		if err := qr.ValidateFormat(f); err != nil {
			SendJSONError(w, http.StatusBadRequest, err, "Invalid QR format")
			return
		}
		format = &f
	}

	jobID, total, err := h.csvPipeline.Submit(ctx, r.FormValue("job"), urls, clientIP(r), qrRequested, format)
	if err != nil {
		if errors.Is(err, utils.ErrEmptyCSV) {
			SendJSONError(w, http.StatusBadRequest, err, "CSV file contains no URLs")
			return
		}
		log.Error().Err(err).Msg("Failed to submit CSV job")
		SendJSONError(w, http.StatusInternalServerError, err, "Could not submit CSV job")
		return
	}

	SendJSONSuccess(w, http.StatusAccepted, CSVJobResponse{
		JobID:      jobID,
		TotalLines: total,
		Progress:   fmt.Sprintf("%s/csv/progress?job=%s", h.baseURL, jobID),
		Download:   fmt.Sprintf("%s/csv/download?job=%s", h.baseURL, jobID),
	})
}

// CSVProgress handles GET /csv/progress?job= - the poll-based progress view.
func (h *Handler) CSVProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	jobID := r.URL.Query().Get("job")
	percent, err := h.csvPipeline.Progress(ctx, jobID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Unknown job")
			return
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to read job progress")
		SendJSONError(w, http.StatusInternalServerError, err, "Could not read job progress")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]interface{}{
		"jobId":    jobID,
		"progress": percent,
		"done":     percent >= 100,
	})
}

// CSVProgressEvents handles GET /csv/progress-events?job= - streams progress
// updates as server-sent events until the job completes or the client leaves.
func (h *Handler) CSVProgressEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		SendJSONError(w, http.StatusBadRequest, utils.ErrNotFound, "Missing job parameter")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		SendJSONError(w, http.StatusInternalServerError, errors.New("streaming unsupported"), "Streaming unsupported")
		return
	}

	// Verify the job exists before holding the connection open
	ctx, cancel := h.opContext(r)
	percent, err := h.csvPipeline.Progress(ctx, jobID)
	cancel()
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Unknown job")
			return
		}
		SendJSONError(w, http.StatusInternalServerError, err, "Could not read job progress")
		return
	}

	events := h.csvPipeline.Registry().Register(jobID)
	defer h.csvPipeline.Registry().Unregister(jobID, events)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeProgressEvent(w, csvjob.Event{Percent: percent, Done: percent >= 100})
	flusher.Flush()
	if percent >= 100 {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeProgressEvent(w, ev)
			flusher.Flush()
			if ev.Done {
				return
			}
		}
	}
}

// DownloadCSV handles GET /csv/download?job= - streams the result rows.
func (h *Handler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	jobID := r.URL.Query().Get("job")

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+".csv"))

	if err := h.csvPipeline.WriteCSV(ctx, jobID, w); err != nil {
		// Headers may already be out; reset them only if nothing was written yet
		w.Header().Del("Content-Disposition")
		if errors.Is(err, utils.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Unknown job")
			return
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to stream result CSV")
		SendJSONError(w, http.StatusInternalServerError, err, "Could not stream result CSV")
	}
}

func writeProgressEvent(w io.Writer, ev csvjob.Event) {
	fmt.Fprintf(w, "event: progress\ndata: {\"progress\":%d,\"done\":%t}\n\n", ev.Percent, ev.Done)
}

// readCSVCells flattens every non-empty cell of the CSV into one URL list.
// Field counts may vary per line; a line with three URLs produces three tasks.
func readCSVCells(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var urls []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, cell := range record {
			if cell != "" {
				urls = append(urls, cell)
			}
		}
	}
	return urls, nil
}

// formFormat builds a QR format from multipart form fields, falling back to
// the defaults for anything unset.
func formFormat(r *http.Request) model.Format {
	format := model.DefaultFormat()
	if v := r.FormValue("qrHeight"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			format.Height = n
		}
	}
	if v := r.FormValue("qrWidth"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			format.Width = n
		}
	}
	if v := r.FormValue("qrColor"); v != "" {
		format.Color = v
	}
	if v := r.FormValue("qrBackground"); v != "" {
		format.Background = v
	}
	if v := r.FormValue("qrImageType"); v != "" {
		format.ImageType = v
	}
	if v := r.FormValue("qrErrorCorrectionLevel"); v != "" {
		format.ErrorCorrectionLevel = v
	}
	return format
}
