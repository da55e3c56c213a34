package badges

import "codemaster/internal/domain"

const (
	FirstQuiz       = "first_quiz"
	PerfectScore    = "perfect_score"
	Streak3         = "streak_3"
	Streak7         = "streak_7"
	Streak14        = "streak_14"
	Streak30        = "streak_30"
	Volume10        = "volume_10"
	Volume50        = "volume_50"
	Marathon        = "marathon"
	Score1000       = "score_1000"
	Score5000       = "score_5000"
	HardPerfect     = "hard_perfect"
	Persistence     = "persistance"
	Speedster       = "speedster"
	Explorer        = "explorer"
	NightOwl        = "night_owl"
	EarlyBird       = "early_bird"
	Polyglot        = "polyglot"
	Focus           = "focus"
	WeekendWarrior  = "weekend_warrior"
	DailyChallenger = "daily_challenger"
)

// DefaultCatalog returns every badge in its locked state, in display order.
func DefaultCatalog() []domain.Badge {
	catalog := []domain.Badge{
		{ID: FirstQuiz, Name: "Premier Pas", Description: "Complétez votre premier quiz", Icon: "🐣"},
		{ID: PerfectScore, Name: "Perfection", Description: "Obtenez 100% à un quiz", Icon: "🎯"},
		{ID: Streak3, Name: "Habitué", Description: "Jouez 3 jours de suite", Icon: "🔥"},
		{ID: Streak7, Name: "Accro", Description: "Jouez 7 jours de suite", Icon: "⚡"},
		{ID: Streak14, Name: "Dévoué", Description: "Jouez 14 jours de suite", Icon: "🗓️"},
		{ID: Streak30, Name: "Inarrêtable", Description: "Jouez 30 jours de suite", Icon: "🚀"},
		{ID: Volume10, Name: "Explorateur", Description: "Terminez 10 quiz", Icon: "🧭"},
		{ID: Volume50, Name: "Vétéran", Description: "Terminez 50 quiz", Icon: "🎖️"},
		{ID: Marathon, Name: "Marathonien", Description: "Terminez 100 quiz", Icon: "🏃"},
		{ID: Score1000, Name: "Apprenti", Description: "Cumulez 1000 points d'XP", Icon: "⭐"},
		{ID: Score5000, Name: "Expert", Description: "Cumulez 5000 points d'XP", Icon: "🌟"},
		{ID: HardPerfect, Name: "Maître", Description: "100% sur un quiz Difficile", Icon: "👑"},
		{ID: Persistence, Name: "Persévérant", Description: "Terminez un quiz même avec un score < 50%", Icon: "🛡️"},
		{ID: Speedster, Name: "Éclair", Description: "Quiz >10 questions, >80% score en < 2 min", Icon: "⚡"},
		{ID: Explorer, Name: "Aventurier", Description: "Jouez aux 3 niveaux de difficulté", Icon: "🗺️"},
		{ID: NightOwl, Name: "Oiseau de nuit", Description: "Terminez un quiz entre 2h et 5h du matin", Icon: "🦉"},
		{ID: EarlyBird, Name: "Lève-tôt", Description: "Terminez un quiz entre 5h et 8h du matin", Icon: "🌅"},
		{ID: Polyglot, Name: "Polyglotte", Description: "Jouez à 3 catégories différentes", Icon: "🗣️"},
		{ID: Focus, Name: "Focus", Description: "5 quiz de suite dans la même catégorie", Icon: "🔬"},
		{ID: WeekendWarrior, Name: "Guerrier du WE", Description: "Jouez Samedi et Dimanche", Icon: "⚔️"},
		{ID: DailyChallenger, Name: "Quotidien", Description: "Terminez un Défi Quotidien", Icon: "📅"},
	}
	for i := range catalog {
		catalog[i].Status = domain.BadgeLocked
	}
	return catalog
}

// Reset locks every badge and clears its unlock time.
func Reset(catalog []domain.Badge) {
	for i := range catalog {
		catalog[i].Status = domain.BadgeLocked
		catalog[i].UnlockedAt = nil
	}
}

// Merge fills in badges from the default catalog that are missing from stored,
// keeping the stored state of the ones already present.
func Merge(stored []domain.Badge) []domain.Badge {
	seen := make(map[string]struct{}, len(stored))
	out := make([]domain.Badge, 0, len(stored))
	for _, b := range stored {
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	for _, b := range DefaultCatalog() {
		if _, ok := seen[b.ID]; !ok {
			out = append(out, b)
		}
	}
	return out
}
