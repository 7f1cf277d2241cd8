package convert

// This package defines common methods and operations for batch-converting georeferenced PNG images (with matching OziExplorer-style .map calibration files) in to GeoTIFF files. Common operations include: Gathering matched pairs, converting pairs to GeoTIFF (optionally reprojected to geocentric XYZ) and publishing footprint documents.
