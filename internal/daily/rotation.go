package daily

import (
	"math/rand"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/models"
)

// Seed derives the rotation seed for a date: whole days since the Unix epoch.
func Seed(date time.Time) int64 {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// SelectQuestions picks the challenge lineup for a seed. Each pool is
// deduplicated and shuffled, a fixed prefix is taken from each, and the
// combined list is shuffled again so content types interleave. The same
// pools and seed always produce the same lineup.
func SelectQuestions(pools models.ContentPools, seed int64) ([]models.ContentRef, error) {
	rng := rand.New(rand.NewSource(seed))

	draws := []struct {
		pool  []string
		typ   models.ContentType
		count int
	}{
		{pools.Films, models.ContentFilm, models.DailyFilmCount},
		{pools.Books, models.ContentBook, models.DailyBookCount},
		{pools.Music, models.ContentMusic, models.DailyMusicCount},
	}

	lineup := make([]models.ContentRef, 0, models.DailyQuestionCount)
	for _, d := range draws {
		titles := dedupe(d.pool)
		if len(titles) < d.count {
			return nil, apperr.Newf(apperr.ErrConfiguration,
				"%s pool has %d distinct titles, need %d", d.typ, len(titles), d.count)
		}
		rng.Shuffle(len(titles), func(i, j int) { titles[i], titles[j] = titles[j], titles[i] })
		for _, t := range titles[:d.count] {
			lineup = append(lineup, models.ContentRef{Title: t, Type: d.typ})
		}
	}

	rng.Shuffle(len(lineup), func(i, j int) { lineup[i], lineup[j] = lineup[j], lineup[i] })
	return lineup, nil
}

func dedupe(titles []string) []string {
	seen := make(map[string]bool, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
