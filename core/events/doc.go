// Package events defines the typed event contract of the duplex voice
// pipeline.
//
// Event kinds are grouped by namespace:
//
//   - user_input.*
//   - assistant_response.*
//   - assistant_speech.*
//   - assistant_playback.*
//   - search.*
//   - session.*
//
// Inbound events are decoded from the duplex connection and consumed once by
// the pipeline loop. Outbound events are emitted by the pipeline to whatever
// renders the conversation.
//
// user_input events
//
//   - UserTranscriptPartial (user_input.transcript_partial): interim
//     recognition text, display only.
//   - UserTranscriptFinal (user_input.transcript_final): end of turn
//     transcript, committed when formatted and non-empty.
//   - MessageCommitted (conversation.message_committed): a user or assistant
//     message passed the duplicate guard and belongs in history.
//
// assistant_response events
//
//   - AssistantReply (assistant_response.reply): reply text pushed by the
//     backend.
//
// assistant_speech events
//
//   - AssistantAudioFragment (assistant_speech.fragment): one indexed,
//     container-framed PCM fragment of synthesized speech.
//   - AssistantAudioFallback (assistant_speech.fallback): synthesis failed;
//     a retrievable clip should be played instead.
//
// assistant_playback events
//
//   - PlaybackSegmentScheduled (assistant_playback.segment_scheduled): a
//     decoded fragment was placed on the playback clock.
//   - PlaybackClipReady (assistant_playback.clip_ready): all fragments of a
//     turn were reassembled into one replayable clip.
//   - ForegroundChanged (assistant_playback.foreground_changed): the audible
//     source changed.
//
// search events
//
//   - SearchResults (search.results): external preview search results.
//   - PreviewStarted (search.preview_started): a preview clip began playing.
//   - PreviewLinkOffered (search.link_offered): no preview was playable, a
//     link is offered instead.
//
// session events
//
//   - StatusChanged (session.status_changed): human readable status change.
package events
