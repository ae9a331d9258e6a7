// Package jobloader fetches job definition documents from files, inline text or
// Kubernetes ConfigMaps, decodes them from YAML, CUE or HCL, and builds the
// job graph. Decoded graphs are cached by source and content digest.
package jobloader
