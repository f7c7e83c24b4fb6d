/*
Package security groups the transport and credential helpers of the
notfound service.

  - tls serves the HTTP front over TLS and reloads renewed certificates.
  - secrets resolves ${secret:name} references in configuration values from
    the environment or a directory of secret files.

Neither package depends on the rest of the service; config embeds tls.Config
in the server section and runs secret resolution while loading.
*/
package security
