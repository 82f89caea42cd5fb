// Package collect runs the literature pipeline: search the configured
// sources, pull full text where a PDF is linked, extract features, export
// the dataset and index it.
package collect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/medrag/internal/dataset"
	"github.com/xxxsen/medrag/internal/extract"
	"github.com/xxxsen/medrag/internal/fetcher"
	"github.com/xxxsen/medrag/internal/filestore"
	"github.com/xxxsen/medrag/internal/indexer"
	"github.com/xxxsen/medrag/internal/model"
	"github.com/xxxsen/medrag/internal/pdfutil"
)

const pdfPause = 100 * time.Millisecond

type Query struct {
	Source fetcher.Source
	Text   string
}

type Options struct {
	Queries []Query
	Limit   int
	// PDF enables full text download; nil skips it.
	PDF         *pdfutil.Downloader
	MaxPDFPages int
	Files       filestore.Store
	CSVKey      string
	JSONKey     string
	// Indexer is optional; nil stops after the dataset export.
	Indexer *indexer.Indexer
}

type Pipeline struct {
	opts Options
}

type Result struct {
	Papers   int
	FullText int
	Records  []model.Record
	Index    *indexer.Stats
}

func New(opts Options) *Pipeline {
	if opts.MaxPDFPages <= 0 {
		opts.MaxPDFPages = pdfutil.DefaultMaxPages
	}
	return &Pipeline{opts: opts}
}

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	papers, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Papers: len(papers)}
	if p.opts.PDF != nil {
		res.FullText = p.enrich(ctx, papers)
	}
	res.Records = BuildRecords(papers)
	logger.Info("features extracted", zap.Int("records", len(res.Records)), zap.Int("full_text", res.FullText))

	if p.opts.Files != nil {
		if err := dataset.Export(ctx, p.opts.Files, res.Records, p.opts.CSVKey, p.opts.JSONKey); err != nil {
			return res, fmt.Errorf("export dataset: %w", err)
		}
		logger.Info("dataset saved",
			zap.String("csv", p.opts.Files.Location(p.opts.CSVKey)),
			zap.String("json", p.opts.Files.Location(p.opts.JSONKey)))
	}
	if p.opts.Indexer != nil {
		stats, err := p.opts.Indexer.Index(ctx, res.Records)
		res.Index = stats
		if err != nil {
			return res, fmt.Errorf("index dataset: %w", err)
		}
	}
	return res, nil
}

// fetch queries every source. A failing source is logged and skipped; the
// run fails only when all of them fail.
func (p *Pipeline) fetch(ctx context.Context) ([]model.Paper, error) {
	logger := logutil.GetLogger(ctx)
	var (
		papers []model.Paper
		errs   []error
	)
	for _, q := range p.opts.Queries {
		found, err := q.Source.Search(ctx, q.Text, p.opts.Limit)
		if err != nil {
			logger.Error("literature search failed", zap.String("source", q.Source.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", q.Source.Name(), err))
			continue
		}
		logger.Info("literature search done", zap.String("source", q.Source.Name()), zap.Int("papers", len(found)))
		papers = append(papers, found...)
	}
	if len(errs) > 0 && len(errs) == len(p.opts.Queries) {
		return nil, errors.Join(errs...)
	}
	return papers, nil
}

// enrich fills Paper.Text from a linked PDF. Failures only cost that paper
// its full text.
func (p *Pipeline) enrich(ctx context.Context, papers []model.Paper) int {
	logger := logutil.GetLogger(ctx)
	n := 0
	for i := range papers {
		link := pdfLink(papers[i])
		if link == "" {
			continue
		}
		path, err := p.opts.PDF.Download(ctx, link)
		if err == nil {
			papers[i].Text, err = pdfutil.ExtractText(path, p.opts.MaxPDFPages)
		}
		if err != nil {
			logger.Warn("pdf download/extract failed", zap.String("title", papers[i].Title), zap.Error(err))
		} else if papers[i].Text != "" {
			n++
		}
		select {
		case <-ctx.Done():
			return n
		case <-time.After(pdfPause):
		}
	}
	return n
}

func pdfLink(p model.Paper) string {
	if pdfutil.LooksLikePDF(p.URL) {
		return p.URL
	}
	return p.ExternalIDs["PDF"]
}

// BuildRecords extracts features from each paper and assigns ids and index
// text: ids prefer the Semantic Scholar id, then the PMID, then the
// position; text prefers full text, then the abstract, then the summary.
func BuildRecords(papers []model.Paper) []model.Record {
	records := make([]model.Record, 0, len(papers))
	for idx, paper := range papers {
		rec := extract.Features(paper)
		switch {
		case paper.PaperID != "":
			rec.ID = paper.PaperID
		case paper.PMID != "":
			rec.ID = paper.PMID
		default:
			rec.ID = fmt.Sprintf("local_%d", idx)
		}
		switch {
		case paper.Text != "":
			rec.Text = paper.Text
		case paper.Abstract != "":
			rec.Text = paper.Abstract
		default:
			rec.Text = rec.Summary
		}
		records = append(records, rec)
	}
	return records
}
