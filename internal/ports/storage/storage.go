package storage

import "context"

// Object es un archivo a subir al proveedor de almacenamiento.
type Object struct {
	Path        string // carpeta/nombre dentro del bucket
	ContentType string
	Content     []byte
}

// ObjectStorage sube y borra archivos en el proveedor externo.
// Upload devuelve la URL pública del objeto.
type ObjectStorage interface {
	Upload(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, publicURL string) error
}
