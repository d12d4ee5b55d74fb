package research

// nextAfterCritic is the DAG's one conditional edge (spec §4.10): a pure
// function of {critic_score, retry_count, threshold, max_retries}, so two
// evaluations over identical state always agree, including across replay.
func nextAfterCritic(state GraphState) Node {
	if state.RetryCount < state.MaxRetries && state.Critic.Score < state.Threshold {
		return NodePlanning
	}
	return NodeFinalize
}
