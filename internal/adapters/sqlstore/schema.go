package sqlstore

import (
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableProfiles = "profiles"
	tableSignals  = "signals"
	tableWorkouts = "workouts"
	tableHistory  = "classification_history"
	tableAudits   = "audit_records"
)

func column(name string, typ field.Type) *entschema.Column {
	return &entschema.Column{Name: name, Type: typ}
}

func idColumn() *entschema.Column {
	return &entschema.Column{Name: "id", Type: field.TypeString, Size: 64}
}

func userColumn() *entschema.Column {
	return &entschema.Column{Name: "user_id", Type: field.TypeString, Size: 128}
}

// tables describes every table of the store for auto-migration.
// Append-only tables are keyed by (user_id, id): record ids are only
// unique per user.
func tables() []*entschema.Table {
	profiles := entschema.NewTable(tableProfiles).
		AddPrimary(userColumn()).
		AddColumn(column("data", field.TypeString)).
		AddColumn(column("updated_at", field.TypeInt64))

	signals := entschema.NewTable(tableSignals).
		AddPrimary(userColumn()).
		AddPrimary(idColumn()).
		AddColumn(column("signal_type", field.TypeString)).
		AddColumn(column("signal_value", field.TypeString)).
		AddColumn(column("tier_indicator", field.TypeString)).
		AddColumn(column("confidence", field.TypeFloat64)).
		AddColumn(column("ts", field.TypeInt64)).
		AddColumn(column("seq", field.TypeInt64))
	signals.AddIndex("signals_user_ts", false, []string{"user_id", "ts"})

	workouts := entschema.NewTable(tableWorkouts).
		AddPrimary(userColumn()).
		AddPrimary(idColumn()).
		AddColumn(column("workout_date", field.TypeInt64)).
		AddColumn(column("exercises", field.TypeString)).
		AddColumn(column("seq", field.TypeInt64))
	workouts.AddIndex("workouts_user_date", false, []string{"user_id", "workout_date"})

	history := entschema.NewTable(tableHistory).
		AddPrimary(userColumn()).
		AddPrimary(idColumn()).
		AddColumn(column("ts", field.TypeInt64)).
		AddColumn(column("seq", field.TypeInt64)).
		AddColumn(column("tier", field.TypeString)).
		AddColumn(column("confidence", field.TypeFloat64)).
		AddColumn(column("trigger_kind", field.TypeString)).
		AddColumn(column("supporting_data", field.TypeString))
	history.AddIndex("history_user_ts", false, []string{"user_id", "ts"})

	audits := entschema.NewTable(tableAudits).
		AddPrimary(userColumn()).
		AddPrimary(idColumn()).
		AddColumn(column("ts", field.TypeInt64)).
		AddColumn(column("seq", field.TypeInt64)).
		AddColumn(column("workouts_analyzed", field.TypeInt)).
		AddColumn(column("trigger_kind", field.TypeString)).
		AddColumn(column("signals_recorded", field.TypeInt)).
		AddColumn(column("previous_tier", field.TypeString)).
		AddColumn(column("result_tier", field.TypeString))
	audits.AddIndex("audits_user_ts", false, []string{"user_id", "ts"})

	return []*entschema.Table{profiles, signals, workouts, history, audits}
}
