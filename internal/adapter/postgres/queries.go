package postgres

// Each query starts with a name comment; MetricsTracer uses it as the metric label.

const insertVote = `-- name: InsertVote
INSERT INTO votes (user_id, idea_id, weight)
VALUES ($1, $2, $3)
RETURNING id, created_at`

const addIdeaVoteCount = `-- name: AddIdeaVoteCount
UPDATE ideas
SET vote_count = vote_count + $2
WHERE id = $1
RETURNING vote_count`

const awardPoints = `-- name: AwardPoints
UPDATE users
SET points = points + $2
WHERE id = $1`

const recentVotesByUser = `-- name: RecentVotesByUser
SELECT id, idea_id, created_at
FROM votes
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

const cycleVotes = `-- name: CycleVotes
SELECT v.id, v.user_id, v.idea_id, i.user_id, v.created_at
FROM votes v
JOIN ideas i ON i.id = v.idea_id
WHERE i.voting_cycle_id = $1
ORDER BY v.created_at, v.id`

const reconcileCycle = `-- name: ReconcileCycle
SELECT i.id, i.vote_count, COALESCE(SUM(v.weight), 0)::BIGINT AS ledger_sum
FROM ideas i
LEFT JOIN votes v ON v.idea_id = i.id
WHERE i.voting_cycle_id = $1
GROUP BY i.id, i.vote_count
HAVING i.vote_count <> COALESCE(SUM(v.weight), 0)
ORDER BY i.id`

const getUserProfile = `-- name: GetUserProfile
SELECT u.id, u.created_at, u.points,
       (SELECT COUNT(*) FROM ideas WHERE user_id = u.id) AS ideas_submitted,
       (SELECT COUNT(*) FROM votes WHERE user_id = u.id) AS votes_cast
FROM users u
WHERE u.id = $1`

const listVerifiedProofs = `-- name: ListVerifiedProofs
SELECT provider
FROM identity_proofs
WHERE user_id = $1 AND verified_at IS NOT NULL
ORDER BY provider`

const ideaExists = `-- name: IdeaExists
SELECT EXISTS (SELECT 1 FROM ideas WHERE id = $1)`
