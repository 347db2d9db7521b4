// Package matcher ranks the images of one catalog category by structural
// similarity to a probe image.
package matcher

import (
	"context"
	"fmt"
	"image"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lostfound/catalog"
	"lostfound/imageprocessor"
	"lostfound/logging"
	"lostfound/signalhandler"
	"lostfound/types"
)

// DefaultThreshold is the minimum score a candidate needs to be reported
const DefaultThreshold = 50.0

// ScoreFunc compares two normalized images of equal size and returns a
// score in [-100, 100]
type ScoreFunc func(a, b image.Image) (float64, error)

// Loader decodes stored image bytes
type Loader interface {
	LoadImage(name string, data []byte) (image.Image, error)
}

// Options configures a Ranker. Zero values select the defaults.
type Options struct {
	Loader        Loader
	Score         ScoreFunc
	Threshold     *float64
	Workers       int
	MaxCandidates int
}

// Ranker scores catalog candidates against a probe
type Ranker struct {
	Loader        Loader
	Score         ScoreFunc
	Threshold     float64
	Workers       int
	MaxCandidates int
}

// Ranking is the outcome of one ranking pass
type Ranking struct {
	// Matches holds the candidates at or above the threshold, best first.
	// Equal scores keep catalog listing order.
	Matches []types.MatchResult

	// Skipped lists candidates that could not be read or decoded
	Skipped []CandidateError

	// Considered is the number of catalog entries in the snapshot
	Considered int
}

// NewRanker creates a ranker, filling in defaults for unset options
func NewRanker(opts Options) *Ranker {
	r := &Ranker{
		Loader:        opts.Loader,
		Score:         opts.Score,
		Threshold:     DefaultThreshold,
		Workers:       opts.Workers,
		MaxCandidates: opts.MaxCandidates,
	}

	if r.Loader == nil {
		r.Loader = imageprocessor.NewImageLoaderRegistry()
	}
	if r.Score == nil {
		r.Score = imageprocessor.ScorePair
	}
	if opts.Threshold != nil {
		r.Threshold = *opts.Threshold
	}
	if r.Workers <= 0 {
		r.Workers = signalhandler.GetOptimalProcs()
	}

	return r
}

// Float returns a pointer to v, for Options.Threshold
func Float(v float64) *float64 {
	return &v
}

// slot holds the outcome for one snapshot position
type slot struct {
	score float64
	err   error
}

// FindSimilarBytes decodes the probe and ranks the category against it.
// A probe that does not decode, or is too small to compare, fails the
// search before the catalog is touched.
func (r *Ranker) FindSimilarBytes(ctx context.Context, probeName string, probe []byte, store catalog.Store, category types.Category) (*Ranking, error) {
	img, err := r.Loader.LoadImage(probeName, probe)
	if err != nil {
		return nil, fmt.Errorf("probe image: %w", err)
	}
	if err := imageprocessor.CheckComparable(probeName, img); err != nil {
		return nil, fmt.Errorf("probe image: %w", err)
	}

	return r.FindSimilar(ctx, img, store, category)
}

// FindSimilar scores every image of the category against the probe and
// returns those at or above the threshold, highest score first
func (r *Ranker) FindSimilar(ctx context.Context, probe image.Image, store catalog.Store, category types.Category) (*Ranking, error) {
	log := logging.Logger().With(zap.String("category", category.String()))

	if err := imageprocessor.CheckComparable("probe", probe); err != nil {
		return nil, fmt.Errorf("probe image: %w", err)
	}

	names, err := store.ListEntries(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s catalog: %w", category, err)
	}

	if r.MaxCandidates > 0 && len(names) > r.MaxCandidates {
		log.Warn("catalog truncated",
			zap.Int("listed", len(names)),
			zap.Int("max_candidates", r.MaxCandidates))
		names = names[:r.MaxCandidates]
	}

	ranking := &Ranking{
		Matches:    []types.MatchResult{},
		Considered: len(names),
	}
	if len(names) == 0 {
		return ranking, nil
	}

	slots := make([]slot, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)

	for i, name := range names {
		i, name := i, name
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := r.scoreCandidate(gctx, probe, store, category, name)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			slots[i] = slot{score: score, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ranking %s catalog: %w", category, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking %s catalog: %w", category, err)
	}

	for i, name := range names {
		s := slots[i]
		if s.err != nil {
			log.Warn("skipping candidate", zap.String("filename", name), zap.Error(s.err))
			ranking.Skipped = append(ranking.Skipped, CandidateError{Filename: name, Err: s.err})
			continue
		}
		if s.score >= r.Threshold {
			ranking.Matches = append(ranking.Matches, types.MatchResult{
				Filename:   name,
				Similarity: s.score,
				Category:   category,
			})
		}
	}

	sort.SliceStable(ranking.Matches, func(a, b int) bool {
		return ranking.Matches[a].Similarity > ranking.Matches[b].Similarity
	})

	log.Debug("ranking complete",
		zap.Int("considered", ranking.Considered),
		zap.Int("matches", len(ranking.Matches)),
		zap.Int("skipped", len(ranking.Skipped)))

	return ranking, nil
}

// scoreCandidate reads, decodes and normalizes one candidate together with
// the probe, then scores the pair
func (r *Ranker) scoreCandidate(ctx context.Context, probe image.Image, store catalog.Store, category types.Category, name string) (float64, error) {
	data, err := store.ReadEntry(ctx, category, name)
	if err != nil {
		return 0, err
	}

	candidate, err := r.Loader.LoadImage(name, data)
	if err != nil {
		return 0, err
	}

	a, b, err := imageprocessor.NormalizePair(probe, candidate)
	if err != nil {
		return 0, err
	}

	return r.Score(a, b)
}
