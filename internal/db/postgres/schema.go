// Package postgres: schema.go embeds the SQL migrations.
// They ship inside the binary, so a deploy is one container and a database.
package postgres

// Schema is every migration, in apply order.
var Schema = []Migration{
	{1, "members", migration001Members},
	{2, "ledger", migration002Ledger},
	{3, "trivia_progress", migration003Progress},
	{4, "trivia_sessions", migration004Sessions},
	{5, "achievements", migration005Achievements},
	{6, "admin", migration006Admin},
}

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255) NOT NULL DEFAULT '',
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    last_name VARCHAR(255) NOT NULL DEFAULT '',
    joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(LOWER(username));
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS balances (
    user_id BIGINT PRIMARY KEY REFERENCES members(user_id),
    available BIGINT NOT NULL DEFAULT 0 CHECK (available >= 0),
    pending BIGINT NOT NULL DEFAULT 0 CHECK (pending >= 0),
    total_earned BIGINT NOT NULL DEFAULT 0,
    total_withdrawn BIGINT NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS payouts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES members(user_id),
    amount BIGINT NOT NULL CHECK (amount > 0),
    category VARCHAR(32) NOT NULL
        CHECK (category IN ('trivia', 'achievement', 'referral', 'withdrawal', 'stacker-clicker')),
    status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'paid', 'failed')),
    tx_ref TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_payouts_user_created ON payouts(user_id, created_at DESC);
`

var migration003Progress = `
CREATE TABLE IF NOT EXISTS trivia_progress (
    user_id BIGINT PRIMARY KEY REFERENCES members(user_id),
    current_level INTEGER NOT NULL DEFAULT 1 CHECK (current_level >= 1),
    correct_count INTEGER NOT NULL DEFAULT 0,
    streak INTEGER NOT NULL DEFAULT 0,
    best_streak INTEGER NOT NULL DEFAULT 0,
    sats_earned BIGINT NOT NULL DEFAULT 0,
    last_played_on DATE,
    level_completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS trivia_progress_answers (
    user_id BIGINT NOT NULL REFERENCES members(user_id),
    question_id VARCHAR(64) NOT NULL,
    answered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, question_id)
);
`

var migration004Sessions = `
CREATE TABLE IF NOT EXISTS trivia_sessions (
    id UUID PRIMARY KEY,
    user_id BIGINT REFERENCES members(user_id),
    level INTEGER NOT NULL CHECK (level >= 1),
    question_ids TEXT[] NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'active'
        CHECK (status IN ('active', 'completed', 'expired')),
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS trivia_sessions_one_active
    ON trivia_sessions(user_id) WHERE status = 'active' AND user_id IS NOT NULL;
CREATE TABLE IF NOT EXISTS trivia_session_answers (
    session_id UUID NOT NULL REFERENCES trivia_sessions(id) ON DELETE CASCADE,
    question_id VARCHAR(64) NOT NULL,
    chosen_option INTEGER NOT NULL,
    correct BOOLEAN NOT NULL,
    answered_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (session_id, question_id)
);
`

var migration005Achievements = `
CREATE TABLE IF NOT EXISTS achievement_definitions (
    type VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    criteria_event VARCHAR(64) NOT NULL,
    criteria_field VARCHAR(64) NOT NULL,
    criteria_operator VARCHAR(8) NOT NULL,
    criteria_value BIGINT NOT NULL,
    reward BIGINT NOT NULL DEFAULT 0 CHECK (reward >= 0),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS achievement_unlocks (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES members(user_id),
    achievement_type VARCHAR(64) NOT NULL REFERENCES achievement_definitions(type),
    unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, achievement_type)
);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token TEXT NOT NULL,
    authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS admin_actions (
    id BIGSERIAL PRIMARY KEY,
    admin_id BIGINT NOT NULL,
    target_user_id BIGINT NOT NULL,
    action VARCHAR(32) NOT NULL,
    amount BIGINT NOT NULL,
    entry_id BIGINT REFERENCES payouts(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
