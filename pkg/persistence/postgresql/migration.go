package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				is_active BOOLEAN NOT NULL DEFAULT true,
				trigger_type VARCHAR(50) NOT NULL CHECK (trigger_type IN ('manual', 'scheduled', 'webhook', 'voice')),
				trigger_config JSONB,
				steps JSONB,
				callback_url TEXT,
				last_run_at TIMESTAMP WITH TIME ZONE,
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_automations_trigger_type ON automations(trigger_type);
			CREATE INDEX idx_automations_is_active ON automations(is_active);
			CREATE INDEX idx_automations_owner ON automations(owner);
			CREATE INDEX idx_automations_created_at ON automations(created_at);
			CREATE INDEX idx_automations_deleted_at ON automations(deleted_at);
		`,
	}
}
