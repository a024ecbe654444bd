// Package providers implements the transcription/refinement backend registry:
// discovery of provider descriptors from a metadata directory, capability
// filtering, and lazy instantiation of the two reference providers. Nothing
// outside this package constructs a Transcriber or Refiner directly.
package providers
