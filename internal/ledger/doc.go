// Package ledger persists pipeline state as append-oriented JSON Lines files.
//
// Four logs live in the state directory:
//   - collected_audio.jsonl: one line per copy made by collect (append-only)
//   - processed_audio.jsonl: one entry per digest that produced a note
//   - failed_transcriptions.jsonl: saved transcription text for audio whose
//     analysis or organization failed, keyed by absolute audio path
//   - original_metadata.jsonl: recording metadata captured before collection
//
// Upserts purge every line for the key and append the new entry. Readers skip
// blank and malformed lines, and purges keep malformed lines verbatim, so a
// damaged line never aborts a run or silently disappears. The package assumes
// a single writer per state directory and takes no locks.
package ledger
